package cashcards

import (
	"fmt"
	"strings"

	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageLimits bounds list requests. Sizes above MaxSize are clamped.
type PageLimits struct {
	DefaultSize int
	MaxSize     int
}

func DefaultPageLimits() PageLimits {
	return PageLimits{DefaultSize: DefaultPageSize, MaxSize: MaxPageSize}
}

func (l PageLimits) normalized() PageLimits {
	if l.MaxSize <= 0 {
		l.MaxSize = MaxPageSize
	}
	if l.DefaultSize <= 0 {
		l.DefaultSize = DefaultPageSize
	}
	if l.DefaultSize > l.MaxSize {
		l.DefaultSize = l.MaxSize
	}
	return l
}

// NormalizePage turns a raw list request into a bounded store page.
func NormalizePage(in ListInput, limits PageLimits) (cashcardrepo.Page, error) {
	limits = limits.normalized()
	p := cashcardrepo.Page{Number: 0, Size: limits.DefaultSize}

	if in.Page != nil {
		if *in.Page < 0 {
			return cashcardrepo.Page{}, validationError("invalid page", map[string]any{"page": "must be >= 0"})
		}
		p.Number = *in.Page
	}
	if in.Size != nil {
		if *in.Size <= 0 {
			return cashcardrepo.Page{}, validationError("invalid size", map[string]any{"size": "must be > 0"})
		}
		p.Size = min(*in.Size, limits.MaxSize)
	}

	for _, raw := range in.Sort {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		o, err := ParseSort(raw)
		if err != nil {
			return cashcardrepo.Page{}, validationError("invalid sort", map[string]any{"sort": err.Error()})
		}
		p.Sort = append(p.Sort, o)
	}
	return p, nil
}

// ParseSort parses "property[,asc|desc]". Property and direction are case-insensitive.
func ParseSort(raw string) (cashcardrepo.Order, error) {
	prop, dir, hasDir := strings.Cut(raw, ",")
	prop = strings.ToLower(strings.TrimSpace(prop))
	dir = strings.ToLower(strings.TrimSpace(dir))

	o := cashcardrepo.Order{Direction: cashcardrepo.Asc}
	switch cashcardrepo.Property(prop) {
	case cashcardrepo.PropertyID, cashcardrepo.PropertyAmount:
		o.Property = cashcardrepo.Property(prop)
	default:
		return cashcardrepo.Order{}, fmt.Errorf("unknown sort property %q", prop)
	}

	if !hasDir {
		return o, nil
	}
	switch dir {
	case "asc":
	case "desc":
		o.Direction = cashcardrepo.Desc
	default:
		return cashcardrepo.Order{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return o, nil
}
