package shortlink

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	userTopLimit   = 5
	globalTopLimit = 10
)

var tracer = otel.Tracer("github.com/nalberthy/url-shorten/internal/app/shortlink")

type CreateLinkInput struct {
	OriginalURL string
	CustomCode  string
	// IsPublic 为 nil 时默认公开
	IsPublic *bool
}

type LinkServiceConfig struct {
	// BaseURL 用于拼接 shortUrl，例如 https://s.example.com
	BaseURL string
}

// LinkService 负责短链的创建、列表、解析、删除和统计，并执行归属/可见性规则。
//
// callerID 为空字符串表示匿名调用者。
type LinkService struct {
	links   LinkStore
	clicks  ClickStore
	alloc   *Allocator
	baseURL string
}

func NewLinkService(cfg LinkServiceConfig, links LinkStore, clicks ClickStore, alloc *Allocator) *LinkService {
	return &LinkService{
		links:   links,
		clicks:  clicks,
		alloc:   alloc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (s *LinkService) Create(ctx context.Context, in CreateLinkInput, callerID string) (LinkView, error) {
	ctx, span := tracer.Start(ctx, "LinkService.Create")
	defer span.End()

	originalURL := strings.TrimSpace(in.OriginalURL)
	if err := ValidateURL(originalURL); err != nil {
		return LinkView{}, err
	}
	custom := strings.TrimSpace(in.CustomCode)
	if custom != "" {
		if err := ValidateCode(custom); err != nil {
			return LinkView{}, err
		}
		taken, err := s.links.CodeExists(ctx, custom)
		if err != nil {
			return LinkView{}, spanError(span, err)
		}
		if taken {
			return LinkView{}, ErrCustomCodeTaken
		}
	}

	now := time.Now().UTC()
	link := Link{
		ID:          uuid.NewString(),
		OriginalURL: originalURL,
		IsPublic:    in.IsPublic == nil || *in.IsPublic,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if custom != "" {
		link.CustomCode = &custom
	}
	if callerID != "" {
		link.UserID = &callerID
	}

	// 插入失败只可能是并发抢占了短码，生成码冲突就换一个重试
	for attempt := 1; attempt <= s.alloc.maxAttempts; attempt++ {
		code, err := s.alloc.Allocate(ctx)
		if err != nil {
			return LinkView{}, spanError(span, err)
		}
		if code == custom {
			continue
		}
		link.ShortCode = code

		saved, err := s.links.InsertLink(ctx, link)
		if err == nil {
			s.alloc.Remember(saved.Codes()...)
			metrics.LinksCreated.Inc()
			span.SetAttributes(attribute.String("shortlink.code", saved.Code()))
			return s.view(saved, callerID), nil
		}

		var conflict *CodeConflictError
		if !errors.As(err, &conflict) {
			return LinkView{}, spanError(span, err)
		}
		s.alloc.Remember(conflict.Code)
		if conflict.Code == custom {
			return LinkView{}, ErrCustomCodeTaken
		}
	}
	return LinkView{}, spanError(span, fmt.Errorf("%w: insert retries exhausted", ErrAllocationExhausted))
}

// List 返回调用者可见的短链：匿名只看公开的，登录用户额外能看到自己的私有短链。
func (s *LinkService) List(ctx context.Context, page, limit int, callerID string) (LinkPage, error) {
	ctx, span := tracer.Start(ctx, "LinkService.List")
	defer span.End()

	filter := LinkFilter{Visibility: VisiblePublic}
	if callerID != "" {
		filter = LinkFilter{Visibility: VisibleToCaller, OwnerID: callerID}
	}
	p, err := s.page(ctx, filter, page, limit, callerID)
	return p, spanError(span, err)
}

// ListOwned 只返回调用者自己的 active 短链。
func (s *LinkService) ListOwned(ctx context.Context, callerID string, page, limit int) (LinkPage, error) {
	ctx, span := tracer.Start(ctx, "LinkService.ListOwned")
	defer span.End()

	if callerID == "" {
		return LinkPage{}, ErrUnauthorized
	}
	p, err := s.page(ctx, LinkFilter{Visibility: VisibleOwned, OwnerID: callerID}, page, limit, callerID)
	return p, spanError(span, err)
}

func (s *LinkService) page(ctx context.Context, filter LinkFilter, page, limit int, callerID string) (LinkPage, error) {
	page, limit = NormalizePage(page, limit)

	total, err := s.links.CountLinks(ctx, filter)
	if err != nil {
		return LinkPage{}, err
	}
	links, err := s.links.ListLinks(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return LinkPage{}, err
	}

	views := make([]LinkView, 0, len(links))
	for _, l := range links {
		views = append(views, s.view(l, callerID))
	}
	return LinkPage{
		Links: views,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// Resolve 匹配 shortCode 或 customCode 的 active 短链并原子地 click_count+1。
// 计数记录的是查找次数，与后续跳转是否成功无关。
func (s *LinkService) Resolve(ctx context.Context, code string) (Link, error) {
	ctx, span := tracer.Start(ctx, "LinkService.Resolve", trace.WithAttributes(attribute.String("shortlink.code", code)))
	defer span.End()

	if code == "" {
		return Link{}, ErrLinkNotFound
	}
	link, err := s.links.ResolveLink(ctx, code)
	if err != nil {
		return Link{}, spanError(span, err)
	}
	return link, nil
}

// Delete 软删除调用者自己的短链。匿名创建的短链不属于任何人，永远不能删除。
// 删除后短码仍然保留，不会被重新分配。
func (s *LinkService) Delete(ctx context.Context, code, callerID string) error {
	ctx, span := tracer.Start(ctx, "LinkService.Delete", trace.WithAttributes(attribute.String("shortlink.code", code)))
	defer span.End()

	link, err := s.links.FindActiveLink(ctx, code)
	if err != nil {
		return spanError(span, err)
	}
	if !link.OwnedBy(callerID) {
		return ErrNotOwner
	}
	return spanError(span, s.links.DeactivateLink(ctx, link.ID))
}

// Stats 登录用户统计自己的短链（前 5），匿名统计全局（前 10）。
func (s *LinkService) Stats(ctx context.Context, callerID string) (Stats, error) {
	ctx, span := tracer.Start(ctx, "LinkService.Stats")
	defer span.End()

	filter := LinkFilter{Visibility: VisibleAll}
	top := globalTopLimit
	if callerID != "" {
		filter = LinkFilter{Visibility: VisibleOwned, OwnerID: callerID}
		top = userTopLimit
	}

	total, err := s.links.CountLinks(ctx, filter)
	if err != nil {
		return Stats{}, spanError(span, err)
	}
	clicks, err := s.links.SumClicks(ctx, filter)
	if err != nil {
		return Stats{}, spanError(span, err)
	}
	links, err := s.links.TopLinks(ctx, filter, top)
	if err != nil {
		return Stats{}, spanError(span, err)
	}

	views := make([]LinkView, 0, len(links))
	for _, l := range links {
		views = append(views, s.view(l, callerID))
	}
	return Stats{
		TotalURLs:   total,
		TotalClicks: clicks,
		TopURLs:     views,
		Scoped:      callerID != "",
	}, nil
}

// Clicks 返回短链最近的点击明细，只有归属者可以查看。按 id 倒序游标分页。
func (s *LinkService) Clicks(ctx context.Context, code, callerID string, cursor int64, limit int) (ClickPage, error) {
	ctx, span := tracer.Start(ctx, "LinkService.Clicks", trace.WithAttributes(attribute.String("shortlink.code", code)))
	defer span.End()

	link, err := s.links.FindActiveLink(ctx, code)
	if err != nil {
		return ClickPage{}, spanError(span, err)
	}
	if !link.OwnedBy(callerID) {
		return ClickPage{}, ErrNotOwner
	}
	_, limit = NormalizePage(1, limit)
	events, err := s.clicks.ListClicks(ctx, link.ID, cursor, limit)
	if err != nil {
		return ClickPage{}, spanError(span, err)
	}

	page := ClickPage{Link: s.view(link, callerID), Clicks: events}
	if len(events) == limit {
		next := events[len(events)-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// ShortURL 拼接对外短链地址。
func (s *LinkService) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

func (s *LinkService) view(l Link, callerID string) LinkView {
	return LinkView{
		Link:     l,
		ShortURL: s.ShortURL(l.Code()),
		IsOwner:  l.OwnedBy(callerID),
	}
}

// NormalizePage 把分页参数收敛到合法范围。
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// (page-1)*limit 不能溢出
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return page, limit
}

// spanError 只把非业务错误记到 span 上。
func spanError(span trace.Span, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func isDomainError(err error) bool {
	for _, kind := range []error{ErrValidation, ErrConflict, ErrUnauthorized, ErrForbidden, ErrNotFound} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
