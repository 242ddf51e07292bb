package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"budgetplan/internal/identity"
	ports "budgetplan/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetBase = "Budget"

var ErrNotInitialized = errors.New("sheets service not initialized")

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	base          string

	// Titles of sheets known to exist, refreshed after knownValidFor.
	mu            sync.Mutex
	known         map[string]struct{}
	knownExpires  time.Time
	knownValidFor time.Duration
}

var _ ports.ReportMirror = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables and a
// service account.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Budget"), the base name that is
// prefixed with the report year.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME")), nil
}

func New(svc *gsheet.Service, spreadsheetID, base string) *Client {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultSheetBase
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		base:          base,
		known:         make(map[string]struct{}),
		knownValidFor: 10 * time.Minute,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// UpsertMonth writes the month's row, creating the sheet with its header
// when missing.
func (c *Client) UpsertMonth(ctx context.Context, user identity.User, row ports.MonthRow) error {
	if c.svc == nil {
		return ErrNotInitialized
	}
	sheet := c.sheetName(user, row.Year)
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}
	n := ports.RowNumber(row.Month)
	rng := rowRange(sheet, n)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// ClearMonth blanks the month's row. A missing sheet is not an error.
func (c *Client) ClearMonth(ctx context.Context, user identity.User, year, month int) error {
	if c.svc == nil {
		return ErrNotInitialized
	}
	sheet := c.sheetName(user, year)
	exists, err := c.hasSheet(ctx, sheet)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	rng := rowRange(sheet, ports.RowNumber(month))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, sheet string) error {
	exists, err := c.hasSheet(ctx, sheet)
	if err != nil || exists {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	rng := rowRange(sheet, 1)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	c.remember(sheet)
	slog.InfoContext(ctx, "Created report sheet", "sheet", sheet)
	return nil
}

func (c *Client) hasSheet(ctx context.Context, sheet string) (bool, error) {
	if ok, fresh := c.cached(sheet); fresh {
		return ok, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("list sheets: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	c.refresh(titles)
	ok, _ := c.cached(sheet)
	return ok, nil
}

// cached reports whether sheet is known and whether the cache is fresh.
func (c *Client) cached(sheet string) (exists, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().After(c.knownExpires) {
		return false, false
	}
	_, exists = c.known[sheet]
	return exists, true
}

func (c *Client) refresh(titles []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = make(map[string]struct{}, len(titles))
	for _, t := range titles {
		c.known[t] = struct{}{}
	}
	c.knownExpires = time.Now().Add(c.knownValidFor)
}

func (c *Client) remember(sheet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[sheet] = struct{}{}
}

// sheetName is "<year> <base> <user>"; the user suffix keeps households apart
// in a shared spreadsheet.
func (c *Client) sheetName(user identity.User, year int) string {
	name := yearPrefixedName(c.base, year)
	if u := shortUser(user); u != "" {
		name += " " + u
	}
	return name
}

func shortUser(user identity.User) string {
	s := strings.ReplaceAll(user.String(), "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

func rowRange(sheet string, row int) string {
	last := columnName(len(ports.Header))
	return fmt.Sprintf("'%s'!A%d:%s%d", sheet, row, last, row)
}

// columnName converts a 1-based column index to its letter name.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
