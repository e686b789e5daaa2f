// Package client is a typed Go client for the front desk REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/frontdesk-api/internal/availability"
	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/httputil"
)

const apiPrefix = "/api/v1"

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	// schedule ID -> weekday, used to check bookings before they are sent
	scheduleDays *cache.Cache
}

type Option func(*Client)

// WithHTTPClient replaces the default transport, e.g. with httptest's.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    20,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		scheduleDays: cache.New(10*time.Minute, 20*time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors httputil.Response with the data left undecoded.
type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.BaseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// decodeError turns an error body back into the AppError the server raised.
func decodeError(status int, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Status != httputil.StatusError {
		return &apperrors.AppError{
			Code:    apperrors.ErrInternal,
			Message: fmt.Sprintf("unexpected %d response", status),
		}
	}
	return &apperrors.AppError{
		Code:    apperrors.ParseCode(env.Code),
		Message: env.Message,
	}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Schedules

func (c *Client) AvailableDates(ctx context.Context, scheduleID int64, count int) (*model.AvailableDatesResponse, error) {
	q := url.Values{}
	if count != 0 {
		q.Set("count", strconv.Itoa(count))
	}
	var out model.AvailableDatesResponse
	if err := c.do(ctx, http.MethodGet, "/schedules/"+id(scheduleID)+"/available-dates", q, nil, &out); err != nil {
		return nil, err
	}
	c.scheduleDays.SetDefault(id(scheduleID), out.Day)
	return &out, nil
}

func (c *Client) SchedulesForDate(ctx context.Context, date string) ([]model.Schedule, error) {
	var out []model.Schedule
	err := c.do(ctx, http.MethodGet, "/schedules", url.Values{"date": {date}}, nil, &out)
	return out, err
}

// Appointments

func (c *Client) scheduleDay(ctx context.Context, scheduleID int64) (model.Weekday, error) {
	if v, ok := c.scheduleDays.Get(id(scheduleID)); ok {
		return v.(model.Weekday), nil
	}
	resp, err := c.AvailableDates(ctx, scheduleID, 1)
	if err != nil {
		return "", err
	}
	return resp.Day, nil
}

// Book checks the date against the schedule's weekday before sending, so an
// obviously wrong booking fails without reaching the server's write path.
func (c *Client) Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	day, err := c.scheduleDay(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	ok, err := availability.IsDateConsistentWithSchedule(req.AppointmentDate, string(day))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewBadRequest(
			fmt.Sprintf("appointment date %s does not fall on the schedule day %s", req.AppointmentDate, day), nil)
	}

	var out model.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAppointment(ctx context.Context, appointmentID int64) (*model.Appointment, error) {
	var out model.Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/"+id(appointmentID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAppointments(ctx context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	q := url.Values{}
	if f != nil {
		if f.Status != "" {
			q.Set("status", string(f.Status))
		}
		if f.PatientID > 0 {
			q.Set("patient_id", id(f.PatientID))
		}
		if f.DoctorID > 0 {
			q.Set("doctor_id", id(f.DoctorID))
		}
		if f.Date != nil {
			q.Set("date", f.Date.String())
		}
		if f.Page > 0 {
			q.Set("page", strconv.Itoa(f.Page))
		}
		if f.PageSize > 0 {
			q.Set("page_size", strconv.Itoa(f.PageSize))
		}
	}
	var out []*model.Appointment
	err := c.do(ctx, http.MethodGet, "/appointments", q, nil, &out)
	return out, err
}

func (c *Client) TodaysAppointments(ctx context.Context) ([]*model.Appointment, error) {
	var out []*model.Appointment
	err := c.do(ctx, http.MethodGet, "/appointments/today", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateStatus(ctx context.Context, appointmentID int64, req *model.UpdateAppointmentStatusRequest) (*model.Appointment, error) {
	var out model.Appointment
	if err := c.do(ctx, http.MethodPut, "/appointments/"+id(appointmentID)+"/status", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, appointmentID int64, req *model.CancelAppointmentRequest) (*model.Appointment, error) {
	if req == nil {
		req = &model.CancelAppointmentRequest{}
	}
	var out model.Appointment
	if err := c.do(ctx, http.MethodPut, "/appointments/"+id(appointmentID)+"/cancel", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reschedule returns the replacement appointment.
func (c *Client) Reschedule(ctx context.Context, appointmentID int64) (*model.Appointment, error) {
	var out model.Appointment
	if err := c.do(ctx, http.MethodPut, "/appointments/"+id(appointmentID)+"/reschedule", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bills

func (c *Client) bill(ctx context.Context, method, path string, body interface{}) (*model.Bill, error) {
	var out model.Bill
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) bills(ctx context.Context, path string) ([]*model.Bill, error) {
	var out []*model.Bill
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

func (c *Client) GenerateAppointmentBill(ctx context.Context, appointmentID int64) (*model.Bill, error) {
	return c.bill(ctx, http.MethodPost, "/bills/appointment/"+id(appointmentID), nil)
}

func (c *Client) CreateTestBill(ctx context.Context, patientID int64, testIDs ...int64) (*model.Bill, error) {
	return c.bill(ctx, http.MethodPost, "/bills/patient/"+id(patientID)+"/tests", &model.CreateTestBillRequest{TestIDs: testIDs})
}

func (c *Client) AddTest(ctx context.Context, billID, testID int64) (*model.Bill, error) {
	return c.bill(ctx, http.MethodPost, "/bills/"+id(billID)+"/tests/"+id(testID), nil)
}

func (c *Client) RemoveItem(ctx context.Context, billID, itemID int64) (*model.Bill, error) {
	return c.bill(ctx, http.MethodDelete, "/bills/"+id(billID)+"/items/"+id(itemID), nil)
}

// Pay settles a bill. An empty method lets the server default to CASH.
func (c *Client) Pay(ctx context.Context, billID int64, method model.PaymentMethod) (*model.Bill, error) {
	return c.bill(ctx, http.MethodPost, "/bills/"+id(billID)+"/pay", &model.PayBillRequest{PaymentMethod: string(method)})
}

func (c *Client) GetBill(ctx context.Context, billID int64) (*model.Bill, error) {
	return c.bill(ctx, http.MethodGet, "/bills/"+id(billID), nil)
}

func (c *Client) DeleteBill(ctx context.Context, billID int64) error {
	return c.do(ctx, http.MethodDelete, "/bills/"+id(billID), nil, nil, nil)
}

func (c *Client) PatientBills(ctx context.Context, patientID int64) ([]*model.Bill, error) {
	return c.bills(ctx, "/bills/patient/"+id(patientID))
}

func (c *Client) UnpaidBills(ctx context.Context) ([]*model.Bill, error) {
	return c.bills(ctx, "/bills/unpaid")
}

func (c *Client) PaidBills(ctx context.Context) ([]*model.Bill, error) {
	return c.bills(ctx, "/bills/paid")
}

func (c *Client) Revenue(ctx context.Context) (*model.RevenueSummary, error) {
	var out model.RevenueSummary
	if err := c.do(ctx, http.MethodGet, "/bills/revenue", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Master data

func (c *Client) HospitalCharge(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		HospitalCharge decimal.Decimal `json:"hospital_charge"`
	}
	if err := c.do(ctx, http.MethodGet, "/master/hospital-charge", nil, nil, &out); err != nil {
		return decimal.Zero, err
	}
	return out.HospitalCharge, nil
}

func (c *Client) Specializations(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/master/specializations", nil, nil, &out)
	return out, err
}
