package httpapi

import (
	"time"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

// 请求

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type shortenRequest struct {
	OriginalURL string `json:"originalUrl" validate:"required,url"`
	CustomCode  string `json:"customCode,omitempty" validate:"omitempty,min=3,max=20"`
	IsPublic    *bool  `json:"isPublic,omitempty"`
}

// 响应

type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAccountResponse(a shortlink.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type authResponse struct {
	User        accountResponse `json:"user"`
	AccessToken string          `json:"access_token"`
}

type usageResponse struct {
	TotalURLs   int64 `json:"totalUrls"`
	TotalClicks int64 `json:"totalClicks"`
}

type profileResponse struct {
	User  accountResponse `json:"user"`
	Stats usageResponse   `json:"stats"`
}

type ownerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// linkResponse 是短链的完整 JSON。IsOwner/User 只在公开列表里出现。
type linkResponse struct {
	ID          string         `json:"id"`
	OriginalURL string         `json:"originalUrl"`
	ShortCode   string         `json:"shortCode"`
	CustomCode  *string        `json:"customCode"`
	IsPublic    bool           `json:"isPublic"`
	IsActive    bool           `json:"isActive"`
	ClickCount  int64          `json:"clickCount"`
	Clicks      int64          `json:"clicks"`
	UserID      *string        `json:"userId"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	ShortURL    string         `json:"shortUrl"`
	IsOwner     *bool          `json:"isOwner,omitempty"`
	User        *ownerResponse `json:"user,omitempty"`
	Creator     string         `json:"creator,omitempty"`
}

func toLinkResponse(v shortlink.LinkView) linkResponse {
	return linkResponse{
		ID:          v.ID,
		OriginalURL: v.OriginalURL,
		ShortCode:   v.ShortCode,
		CustomCode:  v.CustomCode,
		IsPublic:    v.IsPublic,
		IsActive:    v.IsActive,
		ClickCount:  v.ClickCount,
		Clicks:      v.ClickCount,
		UserID:      v.UserID,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		ShortURL:    v.ShortURL,
	}
}

// toListItem 用于公开列表：带 isOwner 和创建者
func toListItem(v shortlink.LinkView) linkResponse {
	r := toLinkResponse(v)
	isOwner := v.IsOwner
	r.IsOwner = &isOwner
	if v.Owner != nil {
		r.User = &ownerResponse{Name: v.Owner.Name, Email: v.Owner.Email}
	}
	return r
}

type paginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type listResponse struct {
	URLs       []linkResponse     `json:"urls"`
	Pagination paginationResponse `json:"pagination"`
}

func toListResponse(p shortlink.LinkPage, item func(shortlink.LinkView) linkResponse) listResponse {
	urls := make([]linkResponse, 0, len(p.Links))
	for _, v := range p.Links {
		urls = append(urls, item(v))
	}
	return listResponse{
		URLs: urls,
		Pagination: paginationResponse{
			Page:  p.Pagination.Page,
			Limit: p.Pagination.Limit,
			Total: p.Pagination.Total,
			Pages: p.Pagination.Pages,
		},
	}
}

// topURLResponse 是个人统计里的精简条目
type topURLResponse struct {
	ShortCode   string    `json:"shortCode"`
	CustomCode  *string   `json:"customCode"`
	OriginalURL string    `json:"originalUrl"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
	ShortURL    string    `json:"shortUrl"`
}

type statsResponse struct {
	TotalURLs   int64 `json:"totalUrls"`
	TotalClicks int64 `json:"totalClicks"`
	TopURLs     any   `json:"topUrls"`
}

const anonymousCreator = "Anonymous"

func toStatsResponse(s shortlink.Stats) statsResponse {
	resp := statsResponse{TotalURLs: s.TotalURLs, TotalClicks: s.TotalClicks}
	if s.Scoped {
		top := make([]topURLResponse, 0, len(s.TopURLs))
		for _, v := range s.TopURLs {
			top = append(top, topURLResponse{
				ShortCode:   v.ShortCode,
				CustomCode:  v.CustomCode,
				OriginalURL: v.OriginalURL,
				ClickCount:  v.ClickCount,
				CreatedAt:   v.CreatedAt,
				ShortURL:    v.ShortURL,
			})
		}
		resp.TopURLs = top
		return resp
	}

	top := make([]linkResponse, 0, len(s.TopURLs))
	for _, v := range s.TopURLs {
		r := toLinkResponse(v)
		r.Creator = anonymousCreator
		if v.Owner != nil {
			r.Creator = v.Owner.Name
		}
		top = append(top, r)
	}
	resp.TopURLs = top
	return resp
}

type clickResponse struct {
	ID        int64     `json:"id"`
	ClickedAt time.Time `json:"clickedAt"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Referer   string    `json:"referer"`
}

type clicksResponse struct {
	URL        linkResponse    `json:"url"`
	Clicks     []clickResponse `json:"clicks"`
	NextCursor *int64          `json:"nextCursor"`
}

func toClicksResponse(p shortlink.ClickPage) clicksResponse {
	clicks := make([]clickResponse, 0, len(p.Clicks))
	for _, c := range p.Clicks {
		clicks = append(clicks, clickResponse{
			ID:        c.ID,
			ClickedAt: c.ClickedAt,
			IP:        c.IP,
			UserAgent: c.UserAgent,
			Referer:   c.Referer,
		})
	}
	return clicksResponse{URL: toLinkResponse(p.Link), Clicks: clicks, NextCursor: p.NextCursor}
}

type messageResponse struct {
	Message string `json:"message"`
}
