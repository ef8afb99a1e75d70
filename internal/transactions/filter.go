package transactions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Filter narrows transaction listings and counts. A nil id slice or time
// means the predicate is absent, i.e. unconstrained; an empty id slice is a
// parsed-but-empty set and likewise constrains nothing. Filters are values:
// the With methods derive modified copies and never mutate the receiver.
type Filter struct {
	CategoryIDs []int64
	AccountIDs  []int64
	CurrencyIDs []int64
	FromTime    *time.Time
	ToTime      *time.Time
	Description *string
}

// EmptyFilter matches every transaction of the owner.
var EmptyFilter = Filter{}

// ParseIDList parses a comma-separated id string. A nil input stays nil
// (unconstrained); an empty string parses to an empty set.
func ParseIDList(raw *string) ([]int64, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return []int64{}, nil
	}

	parts := strings.Split(trimmed, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, errValidation("bad id list %q", *raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseFilterTime parses an ISO-8601 timestamp; nil stays nil.
func ParseFilterTime(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil, errValidation("bad time %q", *raw)
	}
	return &t, nil
}

// NewFilterFromStrings builds a filter from raw query-string values; every
// argument may be nil.
func NewFilterFromStrings(categories, accounts, currencies, from, to, description *string) (Filter, error) {
	var (
		f   Filter
		err error
	)

	if f.CategoryIDs, err = ParseIDList(categories); err != nil {
		return Filter{}, err
	}
	if f.AccountIDs, err = ParseIDList(accounts); err != nil {
		return Filter{}, err
	}
	if f.CurrencyIDs, err = ParseIDList(currencies); err != nil {
		return Filter{}, err
	}
	if f.FromTime, err = ParseFilterTime(from); err != nil {
		return Filter{}, err
	}
	if f.ToTime, err = ParseFilterTime(to); err != nil {
		return Filter{}, err
	}
	if description != nil && *description != "" {
		d := *description
		f.Description = &d
	}

	return f, nil
}

func (f Filter) WithCategoryIDs(ids []int64) Filter {
	f.CategoryIDs = ids
	return f
}

func (f Filter) WithAccountIDs(ids []int64) Filter {
	f.AccountIDs = ids
	return f
}

func (f Filter) WithCurrencyIDs(ids []int64) Filter {
	f.CurrencyIDs = ids
	return f
}

func (f Filter) WithFromTime(t time.Time) Filter {
	f.FromTime = &t
	return f
}

func (f Filter) WithToTime(t time.Time) Filter {
	f.ToTime = &t
	return f
}

func (f Filter) WithDescription(d string) Filter {
	f.Description = &d
	return f
}

// ValidateTime reports whether both bounds are present and span at most
// maxDays.
func (f Filter) ValidateTime(maxDays int) bool {
	if f.FromTime == nil || f.ToTime == nil {
		return false
	}
	return f.ToTime.Sub(*f.FromTime) <= time.Duration(maxDays)*24*time.Hour
}

// conditions renders the WHERE clause for the owner plus every present
// predicate, with positional args starting at $1. An id set with multiple
// values becomes an OR group ANDed into the outer chain; absent predicates
// contribute nothing.
func (f Filter) conditions(ownerID int64) (string, []any) {
	var b strings.Builder
	args := []any{ownerID}
	b.WriteString("t.owner_id = $1")

	idGroup := func(column string, ids []int64) {
		if len(ids) == 0 {
			return
		}
		b.WriteString(" AND (")
		for i, id := range ids {
			if i > 0 {
				b.WriteString(" OR ")
			}
			args = append(args, id)
			fmt.Fprintf(&b, "%s = $%d", column, len(args))
		}
		b.WriteString(")")
	}

	idGroup("t.category_id", f.CategoryIDs)
	idGroup("t.account_id", f.AccountIDs)
	idGroup("t.currency_id", f.CurrencyIDs)

	if f.Description != nil {
		args = append(args, "%"+*f.Description+"%")
		fmt.Fprintf(&b, " AND t.description ILIKE $%d", len(args))
	}
	if f.FromTime != nil {
		args = append(args, *f.FromTime)
		fmt.Fprintf(&b, " AND t.created_at >= $%d", len(args))
	}
	if f.ToTime != nil {
		args = append(args, *f.ToTime)
		fmt.Fprintf(&b, " AND t.created_at <= $%d", len(args))
	}

	return b.String(), args
}
