package whop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
)

const DefaultBaseURL = "https://api.whop.com"

// MaxRetries bounds the retries of a request failing with a transient error.
const MaxRetries = 3

var (
	ErrNotificationSend = errors.New("whop: send notification")
	ErrUnauthorized     = fmt.Errorf("whop: %w", reengage.ErrUnauthorized)
)

// StatusError is returned when the api responds with an unexpected status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalid status code %d: %s", e.Code, e.Body)
}

func (e *StatusError) transient() bool {
	return e.Code == fiber.StatusTooManyRequests || e.Code >= 500
}

// Client implements the platform api calls over the whop rest api.
type Client struct {
	BaseURL string
	APIKey  string

	// Backoff returns the delay policy of a single request. Nil means exponential backoff.
	Backoff func() backoff.BackOff
}

var (
	_ reengage.Platform  = (*Client)(nil)
	_ reengage.Directory = (*Client)(nil)
)

func NewClient(baseURL string, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
	}
}

type userResponse struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type memberResponse struct {
	UserId   string       `json:"user_id"`
	JoinedAt int64        `json:"joined_at"`
	User     userResponse `json:"user"`
}

func (r memberResponse) toDomain() reengage.Member {
	m := reengage.Member{
		UserId:   r.UserId,
		Name:     r.User.Name,
		Username: r.User.Username,
		Email:    r.User.Email,
	}
	if m.UserId == "" {
		m.UserId = r.User.Id
	}
	if r.JoinedAt > 0 {
		m.JoinedAt = time.Unix(r.JoinedAt, 0).UTC()
	}
	return m
}

// Member implements /api/v5/app/companies/{company.id}/members/{user.id}
func (c *Client) Member(ctx context.Context, userId string, companyId string) (reengage.Member, error) {
	var response memberResponse
	err := c.get(ctx, fmt.Sprintf("/api/v5/app/companies/%s/members/%s",
		url.PathEscape(companyId), url.PathEscape(userId)), &response)
	if err != nil {
		if isStatus(err, fiber.StatusNotFound) {
			return reengage.Member{}, reengage.ErrMemberNotFound
		}
		return reengage.Member{}, fmt.Errorf("get member: %w", err)
	}
	return response.toDomain(), nil
}

// User implements /api/v5/app/users/{user.id}
func (c *Client) User(ctx context.Context, userId string) (reengage.Member, error) {
	var response userResponse
	err := c.get(ctx, "/api/v5/app/users/"+url.PathEscape(userId), &response)
	if err != nil {
		if isStatus(err, fiber.StatusNotFound) {
			return reengage.Member{}, reengage.ErrUserNotFound
		}
		return reengage.Member{}, fmt.Errorf("get user: %w", err)
	}
	return reengage.Member{
		UserId:   response.Id,
		Name:     response.Name,
		Username: response.Username,
		Email:    response.Email,
	}, nil
}

// Company implements /api/v5/app/companies/{company.id}
func (c *Client) Company(ctx context.Context, companyId string) (reengage.Company, error) {
	var response struct {
		Id    string `json:"id"`
		Title string `json:"title"`
	}
	err := c.get(ctx, "/api/v5/app/companies/"+url.PathEscape(companyId), &response)
	if err != nil {
		if isStatus(err, fiber.StatusNotFound) {
			return reengage.Company{}, reengage.ErrCompanyNotFound
		}
		return reengage.Company{}, fmt.Errorf("get company: %w", err)
	}
	return reengage.Company{Id: response.Id, Title: response.Title}, nil
}

type accessResponse struct {
	HasAccess   bool   `json:"has_access"`
	AccessLevel string `json:"access_level"`
}

func (r accessResponse) toDomain() reengage.AccessLevel {
	if !r.HasAccess {
		return reengage.AccessLevelNone
	}
	switch level := reengage.AccessLevel(r.AccessLevel); level {
	case reengage.AccessLevelAdmin, reengage.AccessLevelCustomer:
		return level
	default:
		return reengage.AccessLevelNone
	}
}

// CompanyAccess implements /api/v5/app/companies/{company.id}/access/{user.id}
func (c *Client) CompanyAccess(ctx context.Context, userId string, companyId string) (reengage.AccessLevel, error) {
	var response accessResponse
	err := c.get(ctx, fmt.Sprintf("/api/v5/app/companies/%s/access/%s",
		url.PathEscape(companyId), url.PathEscape(userId)), &response)
	if err != nil {
		if isStatus(err, fiber.StatusNotFound) {
			return reengage.AccessLevelNone, reengage.ErrCompanyNotFound
		}
		return reengage.AccessLevelNone, fmt.Errorf("check company access: %w", err)
	}
	return response.toDomain(), nil
}

type experienceResponse struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	CompanyId string `json:"company_id"`
	Company   struct {
		Id string `json:"id"`
	} `json:"company"`
}

// Experience implements /api/v5/app/experiences/{experience.id}
func (c *Client) Experience(ctx context.Context, experienceId string) (reengage.Experience, error) {
	var response experienceResponse
	err := c.get(ctx, "/api/v5/app/experiences/"+url.PathEscape(experienceId), &response)
	if err != nil {
		if isStatus(err, fiber.StatusNotFound) {
			return reengage.Experience{}, reengage.ErrExperienceNotFound
		}
		return reengage.Experience{}, fmt.Errorf("get experience: %w", err)
	}
	companyId := response.CompanyId
	if companyId == "" {
		companyId = response.Company.Id
	}
	return reengage.Experience{Id: response.Id, Name: response.Name, CompanyId: companyId}, nil
}

// ExperienceAccess implements /api/v5/app/experiences/{experience.id}/access/{user.id}
func (c *Client) ExperienceAccess(ctx context.Context, userId string, experienceId string) (reengage.AccessLevel, error) {
	var response accessResponse
	err := c.get(ctx, fmt.Sprintf("/api/v5/app/experiences/%s/access/%s",
		url.PathEscape(experienceId), url.PathEscape(userId)), &response)
	if err != nil {
		if isStatus(err, fiber.StatusNotFound) {
			return reengage.AccessLevelNone, reengage.ErrExperienceNotFound
		}
		return reengage.AccessLevelNone, fmt.Errorf("check experience access: %w", err)
	}
	return response.toDomain(), nil
}

type notificationRequest struct {
	Body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"body"`
	Topics []notificationTopic `json:"topics"`
	Target struct {
		Company string `json:"company"`
	} `json:"target"`
}

type notificationTopic struct {
	TopicIdentifier string   `json:"topic_identifier"`
	Users           []string `json:"users"`
}

// SendNotification implements /api/v5/app/notifications
func (c *Client) SendNotification(ctx context.Context, notification reengage.Notification) error {
	var body notificationRequest
	body.Body.Title = notification.Title
	body.Body.Content = notification.Content
	body.Topics = []notificationTopic{{
		TopicIdentifier: notification.Topic,
		Users:           notification.RecipientIds,
	}}
	body.Target.Company = notification.CompanyId

	_, _, err := c.do(ctx, fiber.MethodPost, "/api/v5/app/notifications", body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationSend, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, response interface{}) error {
	_, body, err := c.do(ctx, fiber.MethodGet, path, nil)
	if err != nil {
		return err
	}
	err = sonic.Unmarshal(body, response)
	if err != nil {
		return fmt.Errorf("response unmarshal: %w", err)
	}
	return nil
}

// do sends the request and retries transport errors and transient status codes.
func (c *Client) do(ctx context.Context, method string, path string, reqBody interface{}) (int, []byte, error) {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = sonic.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	var statusCode int
	var body []byte
	operation := func() error {
		var err error
		statusCode, body, err = c.request(ctx, method, path, payload)
		if err != nil {
			return err
		}
		switch {
		case statusCode >= 200 && statusCode < 300:
			return nil
		case statusCode == fiber.StatusUnauthorized || statusCode == fiber.StatusForbidden:
			return backoff.Permanent(ErrUnauthorized)
		}
		statusErr := &StatusError{Code: statusCode, Body: string(body)}
		if statusErr.transient() {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(c.backoff(), MaxRetries), ctx))
	if err != nil {
		return statusCode, body, err
	}
	return statusCode, body, nil
}

func (c *Client) request(ctx context.Context, method string, path string, payload []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, backoff.Permanent(err)
	}

	// Bytes hands the agent back to the pool, only a failed Parse has to release it here.
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.APIKey)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	req.SetRequestURI(c.BaseURL + path)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.SetBody(payload)
	}
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	}

	err := agent.Parse()
	if err != nil {
		fiber.ReleaseAgent(agent)
		return 0, nil, backoff.Permanent(fmt.Errorf("agent parse: %w", err))
	}

	statusCode, body, errs := agent.Bytes()
	if len(errs) != 0 {
		return 0, nil, fmt.Errorf("agent bytes: %w", errors.Join(errs...))
	}
	return statusCode, body, nil
}

func (c *Client) backoff() backoff.BackOff {
	if c.Backoff != nil {
		return c.Backoff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

func isStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}
