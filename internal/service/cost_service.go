package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/repository"
)

// CostPer1KTokens is the flat USD rate used for estimated cost.
const CostPer1KTokens = 0.002

const topConsumers = 10

// CostService aggregates token spend from the transactions collection.
type CostService interface {
	MonthlyCosts(ctx context.Context) (*models.CostStats, error)
}

type costService struct {
	store repository.Store
	now   func() time.Time
}

// NewCostService creates a CostService over store.
func NewCostService(store repository.Store) CostService {
	return &costService{store: store, now: time.Now}
}

// MonthWindow returns the first instant of t's UTC month and of the next month.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// EstimatedCost converts a token count to USD, rounded to four decimals.
func EstimatedCost(tokens float64) float64 {
	return math.Round(tokens/1000*CostPer1KTokens*1e4) / 1e4
}

func (s *costService) MonthlyCosts(ctx context.Context) (*models.CostStats, error) {
	start, end := MonthWindow(s.now())
	match := bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": start, "$lt": end}}}
	sums := func(id any) bson.M {
		return bson.M{"$group": bson.M{
			"_id":         id,
			"totalTokens": bson.M{"$sum": bson.M{"$abs": "$rawAmount"}},
			"totalValue":  bson.M{"$sum": bson.M{"$abs": "$tokenValue"}},
			"count":       bson.M{"$sum": 1},
		}}
	}

	rows, err := s.store.Aggregate(ctx, repository.CollectionTransactions, []bson.M{
		match,
		sums("$user"),
		{"$sort": bson.D{{Key: "totalTokens", Value: -1}}},
		{"$limit": topConsumers},
	})
	if err != nil {
		return nil, apperr.Upstream(err, "aggregate user costs")
	}

	out := &models.CostStats{
		Month:       start.Format("2006-01"),
		PeriodStart: start,
		PeriodEnd:   end,
		TopUsers:    make([]models.UserCost, 0, len(rows)),
	}
	for _, row := range rows {
		uc := models.UserCost{
			UserID:           idString(row["_id"]),
			TotalTokens:      toFloat(row["totalTokens"]),
			TotalValue:       toFloat(row["totalValue"]),
			TransactionCount: int64(toFloat(row["count"])),
		}
		uc.EstimatedCost = EstimatedCost(uc.TotalTokens)
		if err := s.joinUser(ctx, &uc, row["_id"]); err != nil {
			return nil, err
		}
		out.TopUsers = append(out.TopUsers, uc)
	}

	totals, err := s.store.Aggregate(ctx, repository.CollectionTransactions, []bson.M{match, sums(nil)})
	if err != nil {
		return nil, apperr.Upstream(err, "aggregate monthly totals")
	}
	if len(totals) > 0 {
		t := totals[0]
		out.Totals = models.CostTotals{
			TotalTokens:      toFloat(t["totalTokens"]),
			TotalValue:       toFloat(t["totalValue"]),
			TransactionCount: int64(toFloat(t["count"])),
		}
		out.Totals.EstimatedCost = EstimatedCost(out.Totals.TotalTokens)
	}
	return out, nil
}

// joinUser fills the user's display fields. A missing user leaves them empty.
func (s *costService) joinUser(ctx context.Context, uc *models.UserCost, ref any) error {
	var filter bson.M
	switch v := ref.(type) {
	case primitive.ObjectID:
		filter = bson.M{"_id": v}
	case string:
		if oid, err := primitive.ObjectIDFromHex(v); err == nil {
			filter = bson.M{"_id": oid}
		} else {
			filter = bson.M{"_id": v}
		}
	default:
		return nil
	}
	user, err := s.store.FindOne(ctx, repository.CollectionUsers, filter)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Upstream(err, "look up user %s", uc.UserID)
	}
	uc.Name, _ = user["name"].(string)
	uc.Email, _ = user["email"].(string)
	uc.Username, _ = user["username"].(string)
	return nil
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}
