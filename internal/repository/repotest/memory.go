// Package repotest provides an in-memory repository.Store for handler and service tests.
// It understands the subset of query and aggregation syntax the console issues.
package repotest

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatadmin/admin-console/internal/repository"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpFind             Op = "find"
	OpFindOne          Op = "find_one"
	OpInsertOne        Op = "insert_one"
	OpFindOneAndUpdate Op = "find_one_and_update"
	OpDeleteOne        Op = "delete_one"
	OpDeleteMany       Op = "delete_many"
	OpCount            Op = "count"
	OpAggregate        Op = "aggregate"
)

type faultKey struct {
	op         Op
	collection string
}

// MemoryStore is a goroutine-safe in-memory Store.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string][]bson.M
	faults  map[faultKey]error
	pingErr error
}

var _ repository.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string][]bson.M),
		faults: make(map[faultKey]error),
	}
}

// Fail makes every op on collection return err. An empty collection matches all collections.
func (m *MemoryStore) Fail(op Op, collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[faultKey{op, collection}] = err
}

// FailPing makes Ping return err.
func (m *MemoryStore) FailPing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// Seed inserts docs directly and returns their ids. It panics on error.
func (m *MemoryStore) Seed(collection string, docs ...bson.M) []any {
	ids := make([]any, 0, len(docs))
	for _, d := range docs {
		id, err := m.InsertOne(context.Background(), collection, d)
		if err != nil {
			panic(err)
		}
		ids = append(ids, id)
	}
	return ids
}

// All returns a copy of every document in collection in insertion order.
func (m *MemoryStore) All(collection string) []bson.M {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bson.M, 0, len(m.data[collection]))
	for _, d := range m.data[collection] {
		out = append(out, copyDoc(d))
	}
	return out
}

func (m *MemoryStore) fault(op Op, collection string) error {
	if err, ok := m.faults[faultKey{op, collection}]; ok {
		return err
	}
	return m.faults[faultKey{op, ""}]
}

func (m *MemoryStore) Find(_ context.Context, collection string, filter bson.M, opts repository.FindOptions) ([]bson.M, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpFind, collection); err != nil {
		return nil, 0, err
	}
	matched := m.match(collection, filter)
	total := int64(len(matched))

	if opts.SortField != "" {
		sortDocs(matched, bson.D{{Key: opts.SortField, Value: direction(opts.SortDesc)}, {Key: "_id", Value: direction(opts.SortDesc)}})
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	out := make([]bson.M, 0, len(matched))
	for _, d := range matched {
		out = append(out, copyDoc(d))
	}
	return out, total, nil
}

func (m *MemoryStore) FindOne(_ context.Context, collection string, filter bson.M) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpFindOne, collection); err != nil {
		return nil, err
	}
	matched := m.match(collection, filter)
	if len(matched) == 0 {
		return nil, repository.ErrNotFound
	}
	return copyDoc(matched[0]), nil
}

func (m *MemoryStore) InsertOne(_ context.Context, collection string, doc bson.M) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpInsertOne, collection); err != nil {
		return nil, err
	}
	stored := copyDoc(doc)
	id, ok := stored["_id"]
	if !ok || id == nil {
		id = primitive.NewObjectID()
		stored["_id"] = id
	}
	for _, existing := range m.data[collection] {
		if equal(existing["_id"], id) {
			return nil, fmt.Errorf("insert %s: duplicate key _id %v", collection, id)
		}
	}
	m.data[collection] = append(m.data[collection], stored)
	return id, nil
}

func (m *MemoryStore) FindOneAndUpdate(_ context.Context, collection string, filter bson.M, set bson.M) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpFindOneAndUpdate, collection); err != nil {
		return nil, err
	}
	for _, d := range m.data[collection] {
		if matches(d, filter) {
			for k, v := range set {
				d[k] = copyValue(v)
			}
			return copyDoc(d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemoryStore) DeleteOne(_ context.Context, collection string, filter bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpDeleteOne, collection); err != nil {
		return 0, err
	}
	docs := m.data[collection]
	for i, d := range docs {
		if matches(d, filter) {
			m.data[collection] = append(docs[:i:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MemoryStore) DeleteMany(_ context.Context, collection string, filter bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpDeleteMany, collection); err != nil {
		return 0, err
	}
	var kept []bson.M
	var n int64
	for _, d := range m.data[collection] {
		if matches(d, filter) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	m.data[collection] = kept
	return n, nil
}

func (m *MemoryStore) Count(_ context.Context, collection string, filter bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpCount, collection); err != nil {
		return 0, err
	}
	return int64(len(m.match(collection, filter))), nil
}

// Aggregate supports $match, $group ($sum accumulators with $abs), $sort, $skip and $limit.
func (m *MemoryStore) Aggregate(_ context.Context, collection string, pipeline []bson.M) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpAggregate, collection); err != nil {
		return nil, err
	}
	docs := make([]bson.M, 0, len(m.data[collection]))
	for _, d := range m.data[collection] {
		docs = append(docs, copyDoc(d))
	}
	for _, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("aggregate: stage must have exactly one operator, got %d", len(stage))
		}
		for op, arg := range stage {
			var err error
			switch op {
			case "$match":
				f, ok := asMap(arg)
				if !ok {
					return nil, fmt.Errorf("aggregate: $match expects a document")
				}
				var kept []bson.M
				for _, d := range docs {
					if matches(d, f) {
						kept = append(kept, d)
					}
				}
				docs = kept
			case "$group":
				docs, err = group(docs, arg)
			case "$sort":
				spec, ok := arg.(bson.D)
				if !ok {
					return nil, fmt.Errorf("aggregate: $sort expects bson.D")
				}
				sortDocs(docs, spec)
			case "$skip":
				n := int(toInt(arg))
				if n >= len(docs) {
					docs = nil
				} else {
					docs = docs[n:]
				}
			case "$limit":
				if n := int(toInt(arg)); n < len(docs) {
					docs = docs[:n]
				}
			default:
				return nil, fmt.Errorf("aggregate: unsupported stage %s", op)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if docs == nil {
		docs = []bson.M{}
	}
	return docs, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *MemoryStore) Close(context.Context) error { return nil }

func (m *MemoryStore) match(collection string, filter bson.M) []bson.M {
	var out []bson.M
	for _, d := range m.data[collection] {
		if matches(d, filter) {
			out = append(out, d)
		}
	}
	return out
}

func matches(doc bson.M, filter bson.M) bool {
	for k, v := range filter {
		switch k {
		case "$or":
			hit := false
			for _, sub := range asFilters(v) {
				if matches(doc, sub) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		case "$and":
			for _, sub := range asFilters(v) {
				if !matches(doc, sub) {
					return false
				}
			}
		default:
			fv, present := lookup(doc, k)
			if ops, ok := asMap(v); ok && isOperatorDoc(ops) {
				if !matchOperators(fv, present, ops) {
					return false
				}
				continue
			}
			if !equal(fv, v) {
				return false
			}
		}
	}
	return true
}

func matchOperators(fv any, present bool, ops bson.M) bool {
	for op, arg := range ops {
		switch op {
		case "$eq":
			if !equal(fv, arg) {
				return false
			}
		case "$ne":
			if equal(fv, arg) {
				return false
			}
		case "$gt", "$gte", "$lt", "$lte":
			if !present {
				return false
			}
			c, ok := compare(fv, arg)
			if !ok {
				return false
			}
			switch op {
			case "$gt":
				if c <= 0 {
					return false
				}
			case "$gte":
				if c < 0 {
					return false
				}
			case "$lt":
				if c >= 0 {
					return false
				}
			case "$lte":
				if c > 0 {
					return false
				}
			}
		case "$in", "$nin":
			found := false
			for _, candidate := range asSlice(arg) {
				if equal(fv, candidate) {
					found = true
					break
				}
			}
			if found != (op == "$in") {
				return false
			}
		case "$exists":
			if want, _ := arg.(bool); want != present {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func group(docs []bson.M, arg any) ([]bson.M, error) {
	spec, ok := asMap(arg)
	if !ok {
		return nil, fmt.Errorf("aggregate: $group expects a document")
	}
	keyExpr := spec["_id"]
	var order []string
	groups := make(map[string]bson.M)
	floats := make(map[string]bool)

	for _, d := range docs {
		key := evalExpr(d, keyExpr)
		gk := fmt.Sprintf("%T:%v", key, key)
		g, ok := groups[gk]
		if !ok {
			g = bson.M{"_id": key}
			groups[gk] = g
			order = append(order, gk)
		}
		for field, acc := range spec {
			if field == "_id" {
				continue
			}
			accDoc, ok := asMap(acc)
			if !ok {
				return nil, fmt.Errorf("aggregate: accumulator %s must be a document", field)
			}
			sumExpr, ok := accDoc["$sum"]
			if !ok {
				return nil, fmt.Errorf("aggregate: only $sum accumulators are supported")
			}
			v := evalExpr(d, sumExpr)
			if isFloat(v) {
				floats[field] = true
			}
			prev, _ := g[field].(float64)
			g[field] = prev + toFloat(v)
		}
	}

	out := make([]bson.M, 0, len(order))
	for _, gk := range order {
		g := groups[gk]
		for field := range spec {
			if field == "_id" {
				continue
			}
			if _, set := g[field]; !set {
				g[field] = int64(0)
				continue
			}
			if !floats[field] {
				g[field] = int64(g[field].(float64))
			}
		}
		out = append(out, g)
	}
	return out, nil
}

func evalExpr(doc bson.M, expr any) any {
	switch e := expr.(type) {
	case string:
		if strings.HasPrefix(e, "$") {
			v, _ := lookup(doc, strings.TrimPrefix(e, "$"))
			return v
		}
		return e
	case bson.M, map[string]any:
		m, _ := asMap(e)
		if inner, ok := m["$abs"]; ok {
			v := evalExpr(doc, inner)
			if isFloat(v) {
				return math.Abs(toFloat(v))
			}
			n := toInt(v)
			if n < 0 {
				n = -n
			}
			return n
		}
		return nil
	default:
		return expr
	}
}

func lookup(doc bson.M, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func sortDocs(docs []bson.M, spec bson.D) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range spec {
			a, _ := lookup(docs[i], e.Key)
			b, _ := lookup(docs[j], e.Key)
			c, ok := compare(a, b)
			if !ok || c == 0 {
				continue
			}
			if toInt(e.Value) < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func direction(desc bool) int {
	if desc {
		return -1
	}
	return 1
}

func isOperatorDoc(m bson.M) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func asMap(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return bson.M(m), true
	}
	return nil, false
}

func asFilters(v any) []bson.M {
	var out []bson.M
	for _, item := range asSlice(v) {
		if m, ok := asMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func asSlice(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// normalize maps values onto a small set of comparable kinds.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC()
	case primitive.ObjectID:
		return x
	}
	return v
}

// compare orders a and b; ok is false when the kinds differ. nil sorts first.
func compare(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, true
		default:
			return 1, true
		}
	}
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case primitive.ObjectID:
		y, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return strings.Compare(x.Hex(), y.Hex()), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	if f, ok := normalize(v).(float64); ok {
		return f
	}
	return 0
}

func toInt(v any) int64 {
	return int64(toFloat(v))
}

func copyDoc(d bson.M) bson.M {
	out := make(bson.M, len(d))
	for k, v := range d {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case bson.M:
		return copyDoc(x)
	case map[string]any:
		return copyDoc(bson.M(x))
	case bson.A:
		out := make(bson.A, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}
