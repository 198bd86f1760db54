package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	usersCollection      = "users"
	categoriesCollection = "categories"
	expensesCollection   = "expenses"
)

var ErrNotFound = errors.New("document not found")

// Fields is the loosely typed body of a document as the store hands it out.
type Fields map[string]interface{}

type Document struct {
	ID     string
	Path   string
	Fields Fields
}

// Eq is an equality filter on a single field.
type Eq struct {
	Field string
	Value interface{}
}

type Query struct {
	Collection string
	Where      []Eq
	OrderBy    string
	Desc       bool
	Limit      int
}

func UserPath(userID string) string {
	return usersCollection + "/" + userID
}

func CategoriesPath(userID string) string {
	return UserPath(userID) + "/" + categoriesCollection
}

func ExpensesPath(userID string) string {
	return UserPath(userID) + "/" + expensesCollection
}

func DocPath(collection, id string) string {
	return collection + "/" + id
}

// splitPath returns the parent collection and the id of a document path.
func splitPath(path string) (collection, id string, err error) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", errors.Errorf("invalid document path %q", path)
	}
	return path[:i], path[i+1:], nil
}

func (f Fields) clone() Fields {
	res := make(Fields, len(f))
	for k, v := range f {
		res[k] = v
	}
	return res
}

func applyQuery(docs []Document, q Query) []Document {
	res := make([]Document, 0, len(docs))
	for _, d := range docs {
		if matches(d, q.Where) {
			res = append(res, d)
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(res, func(i, j int) bool {
			c := compareValues(res[i].Fields[q.OrderBy], res[j].Fields[q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	} else {
		sort.SliceStable(res, func(i, j int) bool {
			return res[i].ID < res[j].ID
		})
	}

	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res
}

func matches(d Document, where []Eq) bool {
	for _, w := range where {
		v, ok := d.Fields[w.Field]
		if !ok || compareValues(v, w.Value) != 0 {
			return false
		}
	}
	return true
}

// compareValues orders times, numbers and strings. Values of different
// kinds compare by their string form.
func compareValues(a, b interface{}) int {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(asString(a), asString(b))
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ String() string }:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
