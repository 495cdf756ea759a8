package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/repository"
)

// StatsService reports dashboard counters.
type StatsService interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

type statsService struct {
	store repository.Store
}

// NewStatsService creates a StatsService over store.
func NewStatsService(store repository.Store) StatsService {
	return &statsService{store: store}
}

// Stats counts every dashboard collection concurrently. Any failed count fails the call.
func (s *statsService) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	counts := []struct {
		collection string
		dst        *int64
	}{
		{repository.CollectionUsers, &out.Users},
		{repository.CollectionConversations, &out.Conversations},
		{repository.CollectionMessages, &out.Messages},
		{repository.CollectionAgents, &out.Agents},
		{repository.CollectionFiles, &out.Files},
		{repository.CollectionTransactions, &out.Transactions},
		{repository.CollectionProjects, &out.Projects},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := s.store.Count(gctx, c.collection, bson.M{})
			if err != nil {
				return apperr.Upstream(err, "count %s", c.collection)
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
