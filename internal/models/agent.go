package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	AgentIDPrefix = "agent_"
	agentIDLength = 21
	agentIDChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// AgentListFields are initialized to empty lists when a new agent omits them.
var AgentListFields = []string{
	"tools", "tool_kwargs", "agent_ids", "conversation_starters", "projectIds", "versions",
}

// NewAgentID returns "agent_" followed by 21 random alphanumeric characters.
func NewAgentID() (string, error) {
	buf := make([]byte, agentIDLength)
	max := big.NewInt(int64(len(agentIDChars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate agent id: %w", err)
		}
		buf[i] = agentIDChars[n.Int64()]
	}
	return AgentIDPrefix + string(buf), nil
}
