package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/pkg/redact"
	"github.com/chatadmin/admin-console/internal/repository"
	"github.com/chatadmin/admin-console/internal/resource"
)

// Pagination bounds for list endpoints.
const (
	DefaultPageSize = 25
	MaxPageSize     = 1000
)

var sortFieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ListParams are the query parameters of a list call.
type ListParams struct {
	Page    int
	Limit   int
	Sort    string
	Order   string
	Filters map[string]string
}

// ListResult is the {data, total} envelope of list endpoints.
type ListResult struct {
	Data  []map[string]any `json:"data"`
	Total int64            `json:"total"`
}

// ResourceService is the generic CRUD engine driven by resource descriptors.
type ResourceService interface {
	List(ctx context.Context, d resource.Descriptor, p ListParams) (*ListResult, error)
	Get(ctx context.Context, d resource.Descriptor, id string) (map[string]any, error)
	Create(ctx context.Context, d resource.Descriptor, body map[string]any) (map[string]any, error)
	// Update returns the updated document and the fields that were set,
	// without the descriptor's redacted fields.
	Update(ctx context.Context, d resource.Descriptor, id string, patch map[string]any) (map[string]any, map[string]any, error)
	// Delete returns the pre-delete snapshot.
	Delete(ctx context.Context, d resource.Descriptor, id string) (map[string]any, error)
	// DeleteOlderThan removes documents whose timestamp field is older than days.
	DeleteOlderThan(ctx context.Context, d resource.Descriptor, field string, days int) (int64, error)
}

type resourceService struct {
	store repository.Store
	now   func() time.Time
}

// NewResourceService creates the CRUD service over store.
func NewResourceService(store repository.Store) ResourceService {
	return &resourceService{store: store, now: time.Now}
}

func (s *resourceService) List(ctx context.Context, d resource.Descriptor, p ListParams) (*ListResult, error) {
	skip, limit := repository.Page(p.Page, p.Limit, DefaultPageSize, MaxPageSize)

	sortField := d.DefaultSort
	if p.Sort != "" && p.Sort != "id" && sortFieldRe.MatchString(p.Sort) {
		sortField = p.Sort
	}
	order := strings.ToLower(p.Order)
	if order != "asc" && order != "desc" {
		order = d.DefaultOrder
	}

	items, total, err := s.store.Find(ctx, d.Collection, listFilter(d, p.Filters), repository.FindOptions{
		SortField: sortField,
		SortDesc:  order == "desc",
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		return nil, apperr.Upstream(err, "list %s", d.Name)
	}
	return &ListResult{Data: resource.NormalizeAll(d, items), Total: total}, nil
}

// listFilter builds equality filters from the descriptor's filter params.
// Reference fields match both the hex string and the ObjectID form.
func listFilter(d resource.Descriptor, params map[string]string) bson.M {
	filter := bson.M{}
	for _, f := range d.FilterParams {
		v := strings.TrimSpace(params[f])
		if v == "" {
			continue
		}
		if slices.Contains(d.ObjectIDFields, f) {
			if oid, err := primitive.ObjectIDFromHex(v); err == nil {
				filter[f] = bson.M{"$in": bson.A{v, oid}}
				continue
			}
		}
		filter[f] = v
	}
	return filter
}

func (s *resourceService) Get(ctx context.Context, d resource.Descriptor, id string) (map[string]any, error) {
	doc, err := s.load(ctx, d, id)
	if err != nil {
		return nil, err
	}
	return resource.Normalize(d, doc), nil
}

func (s *resourceService) load(ctx context.Context, d resource.Descriptor, id string) (bson.M, error) {
	doc, err := s.store.FindOne(ctx, d.Collection, resource.FilterForID(d, id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("%s %s not found", d.Kind, id)
	}
	if err != nil {
		return nil, apperr.Upstream(err, "get %s %s", d.Kind, id)
	}
	return doc, nil
}

func (s *resourceService) Create(ctx context.Context, d resource.Descriptor, body map[string]any) (map[string]any, error) {
	if d.ReadOnly {
		return nil, apperr.Validation("%s cannot be created", d.Name)
	}
	doc := bson.M{}
	for k, v := range body {
		doc[k] = v
	}
	delete(doc, "id")
	delete(doc, "_id")

	if d.Defaults != nil {
		for k, v := range d.Defaults() {
			if _, ok := doc[k]; !ok {
				doc[k] = v
			}
		}
	}
	resource.CoerceObjectIDs(d, doc)
	if err := checkRequired(d, doc, false); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, d, doc, nil); err != nil {
		return nil, err
	}
	if h := d.Hooks.BeforeCreate; h != nil {
		if err := h(ctx, s.store, doc); err != nil {
			return nil, classify(err, "prepare %s", d.Kind)
		}
	}
	if d.Timestamps {
		now := s.now().UTC()
		doc["createdAt"] = now
		doc["updatedAt"] = now
	}

	id, err := s.store.InsertOne(ctx, d.Collection, doc)
	if err != nil {
		return nil, apperr.Upstream(err, "create %s", d.Kind)
	}
	doc["_id"] = id
	return resource.Normalize(d, doc), nil
}

func (s *resourceService) Update(ctx context.Context, d resource.Descriptor, id string, patch map[string]any) (map[string]any, map[string]any, error) {
	if d.ReadOnly {
		return nil, nil, apperr.Validation("%s cannot be updated", d.Name)
	}
	current, err := s.load(ctx, d, id)
	if err != nil {
		return nil, nil, err
	}

	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}
	for _, k := range []string{"id", "_id", "createdAt", d.KeyField} {
		delete(set, k)
	}
	resource.CoerceObjectIDs(d, set)
	if err := checkRequired(d, set, true); err != nil {
		return nil, nil, err
	}
	if err := s.checkUnique(ctx, d, set, current["_id"]); err != nil {
		return nil, nil, err
	}
	if h := d.Hooks.BeforeUpdate; h != nil {
		if err := h(ctx, s.store, current, set); err != nil {
			return nil, nil, classify(err, "prepare %s update", d.Kind)
		}
	}
	if len(set) == 0 {
		return resource.Normalize(d, current), map[string]any{}, nil
	}
	if d.Timestamps {
		set["updatedAt"] = s.now().UTC()
	}

	updated, err := s.store.FindOneAndUpdate(ctx, d.Collection, bson.M{"_id": current["_id"]}, set)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperr.NotFound("%s %s not found", d.Kind, id)
	}
	if err != nil {
		return nil, nil, apperr.Upstream(err, "update %s %s", d.Kind, id)
	}
	return resource.Normalize(d, updated), redact.Fields(set, d.Redact), nil
}

func (s *resourceService) Delete(ctx context.Context, d resource.Descriptor, id string) (map[string]any, error) {
	current, err := s.load(ctx, d, id)
	if err != nil {
		return nil, err
	}
	if h := d.Hooks.BeforeDelete; h != nil {
		if err := h(ctx, s.store, current); err != nil {
			return nil, classify(err, "check %s delete", d.Kind)
		}
	}
	n, err := s.store.DeleteOne(ctx, d.Collection, bson.M{"_id": current["_id"]})
	if err != nil {
		return nil, apperr.Upstream(err, "delete %s %s", d.Kind, id)
	}
	if n == 0 {
		return nil, apperr.NotFound("%s %s not found", d.Kind, id)
	}
	return resource.Normalize(d, current), nil
}

func (s *resourceService) DeleteOlderThan(ctx context.Context, d resource.Descriptor, field string, days int) (int64, error) {
	if days < 1 {
		return 0, apperr.Validation("olderThanDays must be a positive integer")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	n, err := s.store.DeleteMany(ctx, d.Collection, bson.M{field: bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, apperr.Upstream(err, "delete %s older than %d days", d.Name, days)
	}
	return n, nil
}

// checkRequired rejects missing or blank required fields. On update only
// fields present in the patch are checked.
func checkRequired(d resource.Descriptor, doc bson.M, partial bool) error {
	for _, f := range d.Required {
		v, ok := doc[f]
		if !ok && partial {
			continue
		}
		if !ok || v == nil {
			return apperr.Validation("%s is required", f)
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return apperr.Validation("%s is required", f)
		}
	}
	return nil
}

// checkUnique refuses a value of d.UniqueField already held by another document.
func (s *resourceService) checkUnique(ctx context.Context, d resource.Descriptor, doc bson.M, self any) error {
	if d.UniqueField == "" {
		return nil
	}
	v, ok := doc[d.UniqueField]
	if !ok {
		return nil
	}
	filter := bson.M{d.UniqueField: v}
	if self != nil {
		filter["_id"] = bson.M{"$ne": self}
	}
	n, err := s.store.Count(ctx, d.Collection, filter)
	if err != nil {
		return apperr.Upstream(err, "check %s uniqueness", d.Kind)
	}
	if n > 0 {
		return apperr.Conflict("%s with %s %s already exists", d.Kind, d.UniqueField, fmt.Sprint(v))
	}
	return nil
}

// classify keeps classified hook errors and wraps the rest as upstream failures.
func classify(err error, format string, args ...any) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Upstream(err, format, args...)
}
