package pagination

const (
	// DefaultPage is used when the caller omits page.
	DefaultPage = 1
	// DefaultSize is the standard page size when size is not provided.
	DefaultSize = 15
	// MaxSize caps how many rows any page can request.
	MaxSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page int
	Size int
}

// Normalize applies defaults and caps.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Size <= 0 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Size
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return p.Normalize().Size
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage wraps items with the paging metadata derived from params and total.
func NewPage[T any](items []T, params Params, total int64) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(n.Size) - 1) / int64(n.Size))
	return Page[T]{
		Items:      items,
		Page:       n.Page,
		Size:       n.Size,
		Total:      total,
		TotalPages: pages,
	}
}
