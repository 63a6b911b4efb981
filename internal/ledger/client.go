package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"suki-be/internal/logger"

	"go.uber.org/zap"
)

const invoicesPerPage = 25

// Client is the external accounting ledger the customer records are mirrored to.
type Client interface {
	IsConnected(ctx context.Context) bool
	FindContact(ctx context.Context, id Identity) (*ContactRef, error)
	CreateContact(ctx context.Context, data ContactData) (*ContactRef, error)
	UpdateContact(ctx context.Context, ref ContactRef, data ContactData) error
	ListInvoices(ctx context.Context, ref ContactRef, filter InvoiceFilter, page int) (*InvoicePage, error)
}

type Options struct {
	BaseURL        string
	OrganizationID string
	AccessToken    string
	Timeout        time.Duration
}

type httpClient struct {
	baseURL string
	orgID   string
	token   string
	http    *http.Client
}

func NewClient(opts Options) Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.BaseURL == "" || opts.AccessToken == "" {
		logger.L().Warn("ledger credentials missing, sync will be skipped")
	}

	return &httpClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		orgID:   opts.OrganizationID,
		token:   opts.AccessToken,
		http:    &http.Client{Timeout: opts.Timeout},
	}
}

func (c *httpClient) IsConnected(ctx context.Context) bool {
	return c.baseURL != "" && c.orgID != "" && c.token != ""
}

func (c *httpClient) FindContact(ctx context.Context, id Identity) (*ContactRef, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("client", "Ledger"),
		zap.String("method", "FindContact"),
		zap.String("email", id.Email),
	)

	if id.Email != "" {
		var res contactListResponse
		if err := c.do(ctx, http.MethodGet, "/contacts", url.Values{"email": {id.Email}}, nil, &res); err != nil {
			log.Warn("contact lookup by email failed", zap.Error(err))
			return nil, err
		}
		if len(res.Contacts) > 0 {
			ct := res.Contacts[0]
			log.Info("contact matched by email", zap.String("contact_id", ct.ContactID))
			return &ContactRef{ID: ct.ContactID, Name: ct.ContactName}, nil
		}
	}

	name := id.DisplayName()
	if name == "" {
		return nil, nil
	}

	var res contactListResponse
	if err := c.do(ctx, http.MethodGet, "/contacts", url.Values{"contact_name": {name}}, nil, &res); err != nil {
		log.Warn("contact lookup by name failed", zap.Error(err))
		return nil, err
	}

	var match *ContactRef
	for _, ct := range res.Contacts {
		if !strings.EqualFold(ct.ContactName, name) {
			continue
		}
		if match != nil {
			// ambiguous, a human has to pick
			log.Warn("multiple contacts share the customer name", zap.String("name", name))
			return nil, nil
		}
		match = &ContactRef{ID: ct.ContactID, Name: ct.ContactName}
	}

	if match != nil {
		log.Info("contact matched by name", zap.String("contact_id", match.ID))
	}
	return match, nil
}

func (c *httpClient) CreateContact(ctx context.Context, data ContactData) (*ContactRef, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("client", "Ledger"),
		zap.String("method", "CreateContact"),
		zap.String("email", data.Email),
	)

	var res contactResponse
	if err := c.do(ctx, http.MethodPost, "/contacts", nil, toContactRequest(data), &res); err != nil {
		log.Error("create contact failed", zap.Error(err))
		return nil, err
	}

	if res.Contact.ContactID == "" {
		err := &Error{Kind: KindServer, Message: "missing contact id"}
		log.Error("create contact returned no id", zap.Error(err))
		return nil, err
	}

	log.Info("contact created", zap.String("contact_id", res.Contact.ContactID))
	return &ContactRef{ID: res.Contact.ContactID, Name: res.Contact.ContactName}, nil
}

func (c *httpClient) UpdateContact(ctx context.Context, ref ContactRef, data ContactData) error {
	log := logger.FromCtx(ctx).With(
		zap.String("client", "Ledger"),
		zap.String("method", "UpdateContact"),
		zap.String("contact_id", ref.ID),
	)

	var res contactResponse
	if err := c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(ref.ID), nil, toContactRequest(data), &res); err != nil {
		log.Error("update contact failed", zap.Error(err))
		return err
	}

	log.Info("contact updated")
	return nil
}

func (c *httpClient) ListInvoices(
	ctx context.Context,
	ref ContactRef,
	filter InvoiceFilter,
	page int,
) (*InvoicePage, error) {
	if page < 1 {
		page = 1
	}

	q := url.Values{
		"customer_id": {ref.ID},
		"page":        {strconv.Itoa(page)},
		"per_page":    {strconv.Itoa(invoicesPerPage)},
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}

	var res invoiceListResponse
	if err := c.do(ctx, http.MethodGet, "/invoices", q, nil, &res); err != nil {
		logger.FromCtx(ctx).Error("list invoices failed",
			zap.String("contact_id", ref.ID),
			zap.Error(err),
		)
		return nil, err
	}

	items := res.Invoices
	if items == nil {
		items = []Invoice{}
	}
	return &InvoicePage{
		Items:   items,
		Page:    page,
		HasMore: res.PageContext.HasMorePage,
		Total:   res.PageContext.Total,
	}, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if !c.IsConnected(ctx) {
		return ErrNotConfigured
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("organization_id", c.orgID)
	endpoint := c.baseURL + path + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal ledger request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Message != "" {
			msg = er.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Kind: classifyStatus(resp.StatusCode), StatusCode: resp.StatusCode, Message: msg}
	}

	// a 2xx can still carry a non-zero application code
	var env errorResponse
	if json.Unmarshal(raw, &env) == nil && env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("ledger code %d", env.Code)
		}
		return &Error{Kind: KindClient, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}
