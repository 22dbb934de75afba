package policy

import "maps"

// MergeLabels applies an update to existing labels. EXTEND (and the
// unspecified behavior) overlays the new labels, REPLACE discards the old
// ones. A nil update leaves the labels unchanged.
func MergeLabels(current map[string]string, update *MetadataMutable, behavior MetadataUpdateBehavior) map[string]string {
	if update == nil {
		return maps.Clone(current)
	}
	if behavior == MetadataUpdateReplace {
		return maps.Clone(update.Labels)
	}
	out := make(map[string]string, len(current)+len(update.Labels))
	maps.Copy(out, current)
	maps.Copy(out, update.Labels)
	return out
}

const (
	DefaultPageLimit = 1000
	MaxPageLimit     = 5000
)

type PageRequest struct {
	Limit  int32 `json:"limit,omitempty"`
	Offset int32 `json:"offset,omitempty"`
}

// Normalize fills in the default limit and rejects out of range values.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Offset < 0 {
		return p, invalidf("page offset must not be negative")
	}
	if p.Limit < 0 || p.Limit > MaxPageLimit {
		return p, invalidf("page limit must be between 0 and %d", MaxPageLimit)
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	return p, nil
}

type PageResponse struct {
	CurrentOffset int32 `json:"current_offset"`
	// NextOffset is zero on the last page.
	NextOffset int32 `json:"next_offset"`
	Total      int32 `json:"total"`
}

func NewPageResponse(req PageRequest, returned int, total int32) PageResponse {
	pr := PageResponse{CurrentOffset: req.Offset, Total: total}
	if next := req.Offset + int32(returned); next < total {
		pr.NextOffset = next
	}
	return pr
}
