package sheets

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source"
)

// Column positions of the leads tab, zero-based from column A.
const (
	colCreatedAt = iota
	colName
	colPhone
	colDestination
	colTravelDate
	colPax
	colBudget
	colStatus
	colOwner
	colRemarks

	leadColumns = 10
)

// fieldColumns maps the update-field names accepted by UpdateByIdentity
// to their column positions.
var fieldColumns = map[string]int{
	"created_at":  colCreatedAt,
	"name":        colName,
	"phone":       colPhone,
	"destination": colDestination,
	"travel_date": colTravelDate,
	"pax":         colPax,
	"budget":      colBudget,
	"status":      colStatus,
	"owner":       colOwner,
	"remarks":     colRemarks,
}

// Default tab names used when the config leaves them empty.
const (
	defaultLeadsTab      = "Leads"
	defaultUsersTab      = "Users"
	defaultBroadcastsTab = "Broadcasts"
)

// Adapter implements source.RemoteStore against the spreadsheet values
// API. Data rows start at row 2; row 1 holds the header.
type Adapter struct {
	client        *Client
	spreadsheetID string
	leadsTab      string
	usersTab      string
	broadcastsTab string
	now           func() time.Time
}

// NewAdapter creates a spreadsheet-backed remote store.
func NewAdapter(client *Client, cfg model.ProviderConfig) *Adapter {
	a := &Adapter{
		client:        client,
		spreadsheetID: cfg.SpreadsheetID,
		leadsTab:      cfg.LeadsTab,
		usersTab:      cfg.UsersTab,
		broadcastsTab: cfg.BroadcastsTab,
		now:           time.Now,
	}
	if a.leadsTab == "" {
		a.leadsTab = defaultLeadsTab
	}
	if a.usersTab == "" {
		a.usersTab = defaultUsersTab
	}
	if a.broadcastsTab == "" {
		a.broadcastsTab = defaultBroadcastsTab
	}
	return a
}

// FetchAll retrieves every lead row from the leads tab.
func (a *Adapter) FetchAll(ctx context.Context, forceRefresh bool) (model.Snapshot, error) {
	if err := a.checkConfig("fetch leads"); err != nil {
		return model.Snapshot{}, err
	}

	path := a.valuesPath(fmt.Sprintf("%s!A2:J", a.leadsTab))
	if forceRefresh {
		path += "?refresh=1"
	}

	var vr ValueRange
	if err := a.client.Get(ctx, path, &vr); err != nil {
		return model.Snapshot{}, fmt.Errorf("fetching leads: %w", err)
	}

	leads := make([]model.Lead, 0, len(vr.Values))
	for i, row := range vr.Values {
		leads = append(leads, rowToLead(row, i+2))
	}

	return model.Snapshot{Leads: leads, CapturedAt: a.now()}, nil
}

// FetchUsers retrieves the user directory from the users tab.
func (a *Adapter) FetchUsers(ctx context.Context) ([]model.User, error) {
	if err := a.checkConfig("fetch users"); err != nil {
		return nil, err
	}

	var vr ValueRange
	path := a.valuesPath(fmt.Sprintf("%s!A2:C", a.usersTab))
	if err := a.client.Get(ctx, path, &vr); err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}

	users := make([]model.User, 0, len(vr.Values))
	for _, row := range vr.Values {
		u := model.User{
			ID:          cell(row, 0),
			Role:        model.NormalizeRole(cell(row, 1)),
			DisplayName: cell(row, 2),
		}
		if u.ID == "" {
			continue
		}
		users = append(users, u)
	}

	return users, nil
}

// FetchBroadcasts retrieves admin broadcasts from the broadcasts tab.
// Rows without an ID are skipped.
func (a *Adapter) FetchBroadcasts(ctx context.Context) ([]model.Broadcast, error) {
	if err := a.checkConfig("fetch broadcasts"); err != nil {
		return nil, err
	}

	var vr ValueRange
	path := a.valuesPath(fmt.Sprintf("%s!A2:D", a.broadcastsTab))
	if err := a.client.Get(ctx, path, &vr); err != nil {
		return nil, fmt.Errorf("fetching broadcasts: %w", err)
	}

	broadcasts := make([]model.Broadcast, 0, len(vr.Values))
	for _, row := range vr.Values {
		b := model.Broadcast{
			ID:       cell(row, 0),
			Audience: cell(row, 2),
			Message:  cell(row, 3),
		}
		if b.ID == "" {
			continue
		}
		if t, ok := model.ParseTimestamp(cell(row, 1)); ok {
			b.PostedAt = t
		}
		broadcasts = append(broadcasts, b)
	}

	return broadcasts, nil
}

// Append adds a new lead row after the last populated row of the leads tab.
func (a *Adapter) Append(ctx context.Context, lead model.Lead) error {
	if err := a.checkConfig("append lead"); err != nil {
		return err
	}
	if lead.Identity().IsZero() {
		return &source.Error{
			Kind:    source.KindValidation,
			Op:      "append lead",
			Message: "lead needs a creation timestamp and a name",
		}
	}

	path := a.valuesPath(fmt.Sprintf("%s!A:J", a.leadsTab)) +
		":append?valueInputOption=USER_ENTERED"
	body := ValueRange{Values: [][]string{leadToRow(lead)}}

	var resp AppendResponse
	if err := a.client.Post(ctx, path, body, &resp); err != nil {
		return fmt.Errorf("appending lead: %w", err)
	}

	return nil
}

// UpdateByIdentity writes field values to the row currently holding the
// lead identified by key. The row address is re-resolved from a fresh
// fetch and verified immediately before the write, since cached row
// numbers go stale whenever other actors insert or delete rows.
func (a *Adapter) UpdateByIdentity(
	ctx context.Context,
	key model.LeadKey,
	fields map[string]string,
) error {
	if err := a.checkConfig("update lead"); err != nil {
		return err
	}
	if key.IsZero() {
		return &source.Error{
			Kind:    source.KindValidation,
			Op:      "update lead",
			Message: "lead key is empty",
		}
	}
	if len(fields) == 0 {
		return &source.Error{
			Kind:    source.KindValidation,
			Op:      "update lead",
			Message: "no fields to update",
		}
	}
	for field := range fields {
		if _, ok := fieldColumns[field]; !ok {
			return &source.Error{
				Kind:    source.KindValidation,
				Op:      "update lead",
				Message: fmt.Sprintf("unknown field %q", field),
			}
		}
	}

	row, err := a.resolveRow(ctx, key)
	if err != nil {
		return err
	}

	data := make([]ValueRange, 0, len(fields))
	for field, value := range fields {
		col := fieldColumns[field]
		data = append(data, ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", a.leadsTab, columnLetter(col), row),
			Values: [][]string{{value}},
		})
	}
	// Map iteration order is random; keep the request deterministic.
	sort.Slice(data, func(i, j int) bool { return data[i].Range < data[j].Range })

	body := BatchUpdateRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}

	var resp BatchUpdateResponse
	path := a.valuesPath("") + ":batchUpdate"
	if err := a.client.Post(ctx, path, body, &resp); err != nil {
		return fmt.Errorf("updating lead %s: %w", key, err)
	}

	return nil
}

// resolveRow finds the row currently holding the lead identified by key
// and verifies the row still matches before handing it out.
func (a *Adapter) resolveRow(ctx context.Context, key model.LeadKey) (int, error) {
	snap, err := a.FetchAll(ctx, true)
	if err != nil {
		return 0, err
	}

	row := 0
	for _, lead := range snap.Leads {
		if lead.Identity() == key {
			row = lead.RowIndex
			break
		}
	}
	if row == 0 {
		return 0, &source.Error{
			Kind:    source.KindNotFound,
			Op:      "update lead",
			Message: fmt.Sprintf("lead %s no longer exists", key),
		}
	}

	// Re-read the single row: another actor may have shifted rows between
	// the resolving fetch and the write.
	var vr ValueRange
	path := a.valuesPath(fmt.Sprintf("%s!A%d:J%d", a.leadsTab, row, row))
	if err := a.client.Get(ctx, path, &vr); err != nil {
		return 0, fmt.Errorf("verifying lead row %d: %w", row, err)
	}
	if len(vr.Values) == 0 || rowToLead(vr.Values[0], row).Identity() != key {
		return 0, &source.Error{
			Kind:    source.KindStaleAddress,
			Op:      "update lead",
			Message: fmt.Sprintf("row %d no longer holds lead %s", row, key),
		}
	}

	return row, nil
}

// checkConfig rejects operations while the spreadsheet ID is missing.
func (a *Adapter) checkConfig(op string) error {
	if a.spreadsheetID == "" {
		return &source.Error{
			Kind:    source.KindConfig,
			Op:      op,
			Message: "spreadsheet ID is not configured",
		}
	}
	return nil
}

// valuesPath builds the values API path for an A1 range. An empty range
// addresses the values collection itself.
func (a *Adapter) valuesPath(a1Range string) string {
	path := fmt.Sprintf("/v4/spreadsheets/%s/values", url.PathEscape(a.spreadsheetID))
	if a1Range != "" {
		path += "/" + url.PathEscape(a1Range)
	}
	return path
}

// rowToLead maps a sheet row to a Lead. rowIndex is the 1-based sheet row
// the values came from.
func rowToLead(row []string, rowIndex int) model.Lead {
	return model.Lead{
		CreatedAt:   cell(row, colCreatedAt),
		Name:        cell(row, colName),
		Phone:       cell(row, colPhone),
		Destination: cell(row, colDestination),
		TravelDate:  cell(row, colTravelDate),
		Pax:         model.ParsePax(cell(row, colPax)),
		Budget:      cell(row, colBudget),
		Status:      cell(row, colStatus),
		Owner:       cell(row, colOwner),
		Remarks:     cell(row, colRemarks),
		RowIndex:    rowIndex,
	}
}

// leadToRow maps a Lead to a full sheet row.
func leadToRow(lead model.Lead) []string {
	row := make([]string, leadColumns)
	row[colCreatedAt] = lead.CreatedAt
	row[colName] = lead.Name
	row[colPhone] = lead.Phone
	row[colDestination] = lead.Destination
	row[colTravelDate] = lead.TravelDate
	if lead.Pax > 0 {
		row[colPax] = strconv.Itoa(lead.Pax)
	}
	row[colBudget] = lead.Budget
	row[colStatus] = lead.Status
	row[colOwner] = lead.Owner
	row[colRemarks] = lead.Remarks
	return row
}

// cell returns the value at index i, or "" for short rows.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// columnLetter converts a zero-based column index to its A1 letter.
func columnLetter(col int) string {
	return string(rune('A' + col))
}
