package query

import (
	"fmt"
	"strings"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type OrderBy string

const (
	OrderByStartDate OrderBy = "start_date"
	OrderByScore     OrderBy = "score"
	OrderByRank      OrderBy = "rank"
)

// Sort orders an explore query. The zero value means score, descending.
type Sort struct {
	Direction Direction `json:"sort,omitempty"`
	OrderBy   OrderBy   `json:"order_by,omitempty"`
}

func (s Sort) normalized() Sort {
	if s.Direction == "" {
		s.Direction = Desc
	}
	if s.OrderBy == "" {
		s.OrderBy = OrderByScore
	}
	return s
}

func (s Sort) WithDirection(d Direction) Sort {
	s.Direction = d
	return s
}

func (s Sort) WithOrderBy(o OrderBy) Sort {
	s.OrderBy = o
	return s
}

// Params renders "&sort=..&order_by=..".
func (s Sort) Params() string {
	n := s.normalized()
	return "&sort=" + string(n.Direction) + "&order_by=" + string(n.OrderBy)
}

func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case Asc:
		return Asc, nil
	case Desc, "":
		return Desc, nil
	default:
		return "", fmt.Errorf("query: invalid sort direction %q", raw)
	}
}

func ParseOrderBy(raw string) (OrderBy, error) {
	switch OrderBy(strings.ToLower(strings.TrimSpace(raw))) {
	case OrderByStartDate:
		return OrderByStartDate, nil
	case OrderByScore, "":
		return OrderByScore, nil
	case OrderByRank:
		return OrderByRank, nil
	default:
		return "", fmt.Errorf("query: invalid order_by %q", raw)
	}
}

// SFWParam is the content-filter suffix Jikan expects.
func SFWParam(nsfw bool) string {
	if nsfw {
		return "&sfw=false"
	}
	return "&sfw=true"
}
