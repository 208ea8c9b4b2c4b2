package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidKind = errors.New("query: invalid result kind")

type kindTag int

const (
	tagTop kindTag = iota + 1
	tagSeasonal
	tagGenre
	tagProducer
)

// ResultKind selects one of the standard listing pages.
type ResultKind struct {
	tag kindTag
	id  uint32
}

var (
	Top      = ResultKind{tag: tagTop}
	Seasonal = ResultKind{tag: tagSeasonal}
)

// GenreKind lists anime of one genre ordered by score.
func GenreKind(id uint32) ResultKind {
	return ResultKind{tag: tagGenre, id: id}
}

// ProducerKind lists anime of one producer ordered by score.
func ProducerKind(id uint32) ResultKind {
	return ResultKind{tag: tagProducer, id: id}
}

// ID is the genre or producer id, zero for Top and Seasonal.
func (k ResultKind) ID() uint32 {
	return k.id
}

func (k ResultKind) IsZero() bool {
	return k.tag == 0
}

// ParseResultKind accepts "top", "seasonal", "genre/N" and "producer/N".
func ParseResultKind(raw string) (ResultKind, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	switch raw {
	case "top":
		return Top, nil
	case "seasonal":
		return Seasonal, nil
	}
	prefix, rest, ok := strings.Cut(raw, "/")
	if !ok {
		return ResultKind{}, fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return ResultKind{}, fmt.Errorf("%w: bad id in %q", ErrInvalidKind, raw)
	}
	switch prefix {
	case "genre":
		return GenreKind(uint32(id)), nil
	case "producer":
		return ProducerKind(uint32(id)), nil
	default:
		return ResultKind{}, fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

func (k ResultKind) String() string {
	switch k.tag {
	case tagTop:
		return "top"
	case tagSeasonal:
		return "seasonal"
	case tagGenre:
		return "genre/" + strconv.FormatUint(uint64(k.id), 10)
	case tagProducer:
		return "producer/" + strconv.FormatUint(uint64(k.id), 10)
	default:
		return ""
	}
}

// Link is the Jikan path (relative to the API base) for the first query
// parameters of this listing. Callers append "page=N" and SFWParam.
func (k ResultKind) Link() string {
	switch k.tag {
	case tagTop:
		return "top/anime?"
	case tagSeasonal:
		return "seasons/now?"
	case tagGenre:
		return fmt.Sprintf("anime?genres=%d&order_by=score&sort=desc", k.id)
	case tagProducer:
		return fmt.Sprintf("anime?producers=%d&order_by=score&sort=desc", k.id)
	default:
		return ""
	}
}

func (k ResultKind) MarshalText() ([]byte, error) {
	if k.IsZero() {
		return nil, ErrInvalidKind
	}
	return []byte(k.String()), nil
}

func (k *ResultKind) UnmarshalText(b []byte) error {
	v, err := ParseResultKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
