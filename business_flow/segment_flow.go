package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/redis/go-redis/v9"
)

const segmentPreviewCachePrefix = "segment:preview:"

// SegmentFlow handles audience preview logic
type SegmentFlow interface {
	PreviewSegment(ctx context.Context, actor Actor, req *dto.PreviewSegmentRequest, metadata *ClientMetadata) (*dto.PreviewSegmentResponse, error)
}

// SegmentFlowImpl implements the segment business flow
type SegmentFlowImpl struct {
	customerRepo repository.CustomerRepository
	rc           *redis.Client
}

// NewSegmentFlow creates a new segment flow instance. rc may be nil, in
// which case preview counts are never cached.
func NewSegmentFlow(customerRepo repository.CustomerRepository, rc *redis.Client) SegmentFlow {
	return &SegmentFlowImpl{
		customerRepo: customerRepo,
		rc:           rc,
	}
}

// PreviewSegment returns the match count and a small sample for a
// segment definition without touching any campaign state. Counts are
// cached briefly since staff iterate on conditions interactively.
func (s *SegmentFlowImpl) PreviewSegment(ctx context.Context, actor Actor, req *dto.PreviewSegmentRequest, metadata *ClientMetadata) (*dto.PreviewSegmentResponse, error) {
	if err := req.Segment.Validate(); err != nil {
		return nil, NewBusinessError("SEGMENT_VALIDATION_FAILED", "Segment validation failed", err)
	}

	limit := req.Limit
	if limit < 1 {
		limit = utils.DefaultSegmentPreviewLimit
	}
	if limit > utils.MaxSegmentPreviewLimit {
		limit = utils.MaxSegmentPreviewLimit
	}

	total, cached := s.cachedCount(ctx, req.Segment)
	if !cached {
		var err error
		total, err = s.customerRepo.CountBySegment(ctx, req.Segment)
		if err != nil {
			return nil, NewBusinessError("SEGMENT_PREVIEW_FAILED", "Segment preview failed", err)
		}
		s.storeCount(ctx, req.Segment, total)
	}

	sample, err := s.customerRepo.BySegment(ctx, req.Segment, limit, 0)
	if err != nil {
		return nil, NewBusinessError("SEGMENT_PREVIEW_FAILED", "Segment preview failed", err)
	}

	resp := &dto.PreviewSegmentResponse{
		Total:  total,
		Cached: cached,
		Sample: make([]dto.CustomerSummaryDTO, 0, len(sample)),
	}
	for _, customer := range sample {
		resp.Sample = append(resp.Sample, toCustomerSummary(customer))
	}
	return resp, nil
}

func (s *SegmentFlowImpl) cachedCount(ctx context.Context, segment models.SegmentConfig) (int64, bool) {
	if s.rc == nil {
		return 0, false
	}

	raw, err := s.rc.Get(ctx, segmentCacheKey(segment)).Result()
	if err != nil {
		return 0, false
	}

	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

func (s *SegmentFlowImpl) storeCount(ctx context.Context, segment models.SegmentConfig, total int64) {
	if s.rc == nil {
		return
	}
	_ = s.rc.Set(ctx, segmentCacheKey(segment), strconv.FormatInt(total, 10), utils.SegmentPreviewCacheTTL).Err()
}

func segmentCacheKey(segment models.SegmentConfig) string {
	raw, _ := json.Marshal(segment)
	sum := sha256.Sum256(raw)
	return segmentPreviewCachePrefix + hex.EncodeToString(sum[:])
}

func toCustomerSummary(customer *models.Customer) dto.CustomerSummaryDTO {
	out := dto.CustomerSummaryDTO{
		ID:        customer.ID,
		UUID:      customer.UUID.String(),
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
	}
	if customer.Email != nil {
		out.Email = *customer.Email
	}
	if customer.Phone != nil {
		out.Phone = *customer.Phone
	}
	if customer.City != nil {
		out.City = *customer.City
	}
	return out
}
