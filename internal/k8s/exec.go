package k8s

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/pkg/metrics"
	"github.com/chatadmin/admin-console/internal/pkg/validate"
)

// Verb is a supported read-only command.
type Verb string

const (
	VerbGet      Verb = "get"
	VerbDescribe Verb = "describe"
	VerbLogs     Verb = "logs"
	VerbTop      Verb = "top"
	VerbExplain  Verb = "explain"
)

// Verbs is every verb with a handler, in help order.
var Verbs = []Verb{VerbGet, VerbDescribe, VerbLogs, VerbTop, VerbExplain}

// DefaultAllowList permits every supported verb.
func DefaultAllowList() []string {
	out := make([]string, len(Verbs))
	for i, v := range Verbs {
		out[i] = string(v)
	}
	return out
}

const defaultLogTail = 100

type verbHandler func(ctx context.Context, c *Client, inv *invocation) (string, error)

type verbEntry struct {
	run  verbHandler
	help models.CommandHelp
}

// verbTable must hold exactly one entry per element of Verbs.
var verbTable = map[Verb]verbEntry{
	VerbGet: {
		run: runGet,
		help: models.CommandHelp{
			Verb:        string(VerbGet),
			Description: "List pods, deployments or services, or show one by name",
			Examples:    []string{"get pods", "get deploy -n librechat", "get svc -A", "get pod librechat-api-7f8"},
		},
	},
	VerbDescribe: {
		run: runDescribe,
		help: models.CommandHelp{
			Verb:        string(VerbDescribe),
			Description: "Show the full definition and recent events of a pod or deployment",
			Examples:    []string{"describe pod librechat-api-7f8", "describe deployment librechat-api"},
		},
	},
	VerbLogs: {
		run: runLogs,
		help: models.CommandHelp{
			Verb:        string(VerbLogs),
			Description: "Print the logs of a pod container",
			Examples:    []string{"logs librechat-api-7f8", "logs librechat-api-7f8 --tail=50", "logs mongodb-0 -c mongod"},
		},
	},
	VerbTop: {
		run: runTop,
		help: models.CommandHelp{
			Verb:        string(VerbTop),
			Description: "Show CPU and memory usage of pods or nodes from the metrics API",
			Examples:    []string{"top pods", "top pods -A", "top nodes"},
		},
	},
	VerbExplain: {
		run: runExplain,
		help: models.CommandHelp{
			Verb:        string(VerbExplain),
			Description: "Describe the fields of pods, deployments or services",
			Examples:    []string{"explain pods", "explain deployments.spec"},
		},
	},
}

// ParseVerb maps s onto a supported verb.
func ParseVerb(s string) (Verb, bool) {
	v := Verb(strings.ToLower(s))
	_, ok := verbTable[v]
	return v, ok
}

// CommandHelp returns help for every supported verb, marking those the allow list admits.
func CommandHelp(allowList []string) []models.CommandHelp {
	out := make([]models.CommandHelp, 0, len(Verbs))
	for _, v := range Verbs {
		h := verbTable[v].help
		h.Allowed = isAllowed(string(v), allowList)
		out = append(out, h)
	}
	return out
}

// ExecOptions scope one command execution.
type ExecOptions struct {
	// Namespace is used when the command carries no -n flag.
	Namespace string
	// AllowList defaults to DefaultAllowList when empty.
	AllowList []string
	// Namespaces are the namespaces the console manages; -A spans them and
	// other namespaces are refused. Empty means unrestricted.
	Namespaces []string
}

type invocation struct {
	verb          Verb
	args          []string
	namespace     string
	allNamespaces bool
	namespaces    []string
	tail          int64
	tailSet       bool
	container     string
}

// targets returns the namespaces a list-style command covers.
func (inv *invocation) targets() []string {
	if inv.allNamespaces && len(inv.namespaces) > 0 {
		return inv.namespaces
	}
	return []string{inv.namespace}
}

// ExecuteCommand runs one read-only command line such as "get pods -n librechat".
// A leading "kubectl" is ignored. A verb outside the allow list is rejected
// with a validation error before any API call. Every other failure is
// reported in the result with a nonzero exit code.
func (c *Client) ExecuteCommand(ctx context.Context, line string, opts ExecOptions) (models.CommandResult, error) {
	fields := strings.Fields(line)
	if len(fields) > 0 && fields[0] == "kubectl" {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return failed("command is required"), apperr.Validation("command is required")
	}

	allowList := opts.AllowList
	if len(allowList) == 0 {
		allowList = DefaultAllowList()
	}
	name := strings.ToLower(fields[0])
	if !isAllowed(name, allowList) {
		metrics.CommandExecutionsTotal.WithLabelValues("other", "denied").Inc()
		msg := fmt.Sprintf("command %q is not allowed; allowed commands: %s", name, strings.Join(allowList, ", "))
		return failed(msg), apperr.Validation("%s", msg)
	}

	verb, ok := ParseVerb(name)
	if !ok {
		metrics.CommandExecutionsTotal.WithLabelValues("other", "error").Inc()
		return failed(fmt.Sprintf("command %q is not supported", name)), nil
	}

	inv, err := parseArgs(verb, fields[1:])
	if err != nil {
		metrics.CommandExecutionsTotal.WithLabelValues(string(verb), "error").Inc()
		return failed(err.Error()), nil
	}
	inv.namespaces = opts.Namespaces
	if inv.namespace == "" {
		inv.namespace = opts.Namespace
	}
	if inv.namespace == "" && len(opts.Namespaces) > 0 {
		inv.namespace = opts.Namespaces[0]
	}
	if inv.namespace == "" {
		inv.namespace = "default"
	}
	if !validate.Namespace(inv.namespace) {
		return failed(fmt.Sprintf("invalid namespace %q", inv.namespace)), nil
	}
	if len(opts.Namespaces) > 0 && !slices.Contains(opts.Namespaces, inv.namespace) {
		return failed(fmt.Sprintf("namespace %q is not managed by this console", inv.namespace)), nil
	}

	out, err := c.dispatch(ctx, inv)
	if err != nil {
		metrics.CommandExecutionsTotal.WithLabelValues(string(verb), "error").Inc()
		return models.CommandResult{Output: out, Error: err.Error(), ExitCode: 1}, nil
	}
	metrics.CommandExecutionsTotal.WithLabelValues(string(verb), "success").Inc()
	return models.CommandResult{Output: out}, nil
}

func (c *Client) dispatch(ctx context.Context, inv *invocation) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Command handler panicked", zap.String("verb", string(inv.verb)), zap.Any("panic", r))
			out, err = "", fmt.Errorf("internal error running %s", inv.verb)
		}
	}()
	entry, ok := verbTable[inv.verb]
	if !ok {
		return "", fmt.Errorf("command %q is not supported", inv.verb)
	}
	return entry.run(ctx, c, inv)
}

func failed(msg string) models.CommandResult {
	return models.CommandResult{Error: msg, ExitCode: 1}
}

func isAllowed(verb string, allowList []string) bool {
	for _, a := range allowList {
		if strings.EqualFold(strings.TrimSpace(a), verb) {
			return true
		}
	}
	return false
}

func parseArgs(verb Verb, args []string) (*invocation, error) {
	inv := &invocation{verb: verb}
	value := func(i *int, flag string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("flag needs an argument: %s", flag)
		}
		*i++
		return args[*i], nil
	}
	setTail := func(s string) error {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid --tail value %q", s)
		}
		inv.tail, inv.tailSet = n, true
		return nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		var err error
		switch {
		case a == "-n" || a == "--namespace":
			inv.namespace, err = value(&i, a)
		case strings.HasPrefix(a, "--namespace="):
			inv.namespace = strings.TrimPrefix(a, "--namespace=")
		case a == "-A" || a == "--all-namespaces":
			inv.allNamespaces = true
		case a == "-c" || a == "--container":
			inv.container, err = value(&i, a)
		case strings.HasPrefix(a, "--container="):
			inv.container = strings.TrimPrefix(a, "--container=")
		case a == "--tail":
			var s string
			if s, err = value(&i, a); err == nil {
				err = setTail(s)
			}
		case strings.HasPrefix(a, "--tail="):
			err = setTail(strings.TrimPrefix(a, "--tail="))
		case a == "-o" || a == "--output":
			_, err = value(&i, a)
		case strings.HasPrefix(a, "-o") || strings.HasPrefix(a, "--output="):
			// output format flags are accepted and ignored
		case strings.HasPrefix(a, "-"):
			err = fmt.Errorf("unknown flag: %s", a)
		default:
			inv.args = append(inv.args, a)
		}
		if err != nil {
			return nil, err
		}
	}
	return inv, nil
}
