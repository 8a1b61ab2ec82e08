package app

import (
	"context"
	"io"
	"sort"
	"time"

	"hotel_ops_bot/internal/domain/employee"
	"hotel_ops_bot/internal/domain/event"
	"hotel_ops_bot/internal/domain/notification"
	"hotel_ops_bot/internal/domain/shift"
	"hotel_ops_bot/internal/domain/workitem"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// ── Mock workitem.Store ──

type itemKey struct {
	kind workitem.Kind
	id   int64
}

type mockWorkItemStore struct {
	items        map[itemKey]*workitem.WorkItem
	audit        []*workitem.AuditEntry
	auditErr     error
	queryErr     map[workitem.Kind]error
	beforeUpdate func() // runs inside UpdateStatus, before the guard is evaluated
	updates      int
}

func newMockWorkItemStore() *mockWorkItemStore {
	return &mockWorkItemStore{
		items:    make(map[itemKey]*workitem.WorkItem),
		queryErr: make(map[workitem.Kind]error),
	}
}

func (m *mockWorkItemStore) put(item *workitem.WorkItem) {
	m.items[itemKey{item.Kind, item.ID}] = item
}

func (m *mockWorkItemStore) row(kind workitem.Kind, id int64) *workitem.WorkItem {
	return m.items[itemKey{kind, id}]
}

func (m *mockWorkItemStore) Get(_ context.Context, kind workitem.Kind, id int64) (*workitem.WorkItem, error) {
	item, ok := m.items[itemKey{kind, id}]
	if !ok {
		return nil, workitem.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *mockWorkItemStore) UpdateStatus(_ context.Context, kind workitem.Kind, id int64, expected, next workitem.Status, lc workitem.Lifecycle) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	item, ok := m.items[itemKey{kind, id}]
	if !ok {
		return workitem.ErrNotFound
	}
	if item.Status != expected {
		return workitem.ErrConcurrentModification
	}
	item.Apply(next, lc)
	m.updates++
	return nil
}

func containsStatus(statuses []workitem.Status, s workitem.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (m *mockWorkItemStore) sorted(kind workitem.Kind, keep func(*workitem.WorkItem) bool) []*workitem.WorkItem {
	var out []*workitem.WorkItem
	for k, item := range m.items {
		if k.kind != kind || !keep(item) {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockWorkItemStore) QueryOverdue(_ context.Context, kind workitem.Kind, statuses []workitem.Status, before, notifiedBefore time.Time) ([]*workitem.WorkItem, error) {
	if err := m.queryErr[kind]; err != nil {
		return nil, err
	}
	return m.sorted(kind, func(w *workitem.WorkItem) bool {
		return containsStatus(statuses, w.Status) &&
			w.DueAt.Before(before) &&
			(!w.OverdueNotifiedDate.Valid || w.OverdueNotifiedDate.Time.Before(notifiedBefore))
	}), nil
}

func (m *mockWorkItemStore) QueryEscalationCandidates(_ context.Context, kind workitem.Kind, statuses []workitem.Status, dueBefore time.Time) ([]*workitem.WorkItem, error) {
	if err := m.queryErr[kind]; err != nil {
		return nil, err
	}
	return m.sorted(kind, func(w *workitem.WorkItem) bool {
		return containsStatus(statuses, w.Status) && !w.Escalated && w.DueAt.Before(dueBefore)
	}), nil
}

func (m *mockWorkItemStore) MarkOverdueNotified(_ context.Context, kind workitem.Kind, id int64, date time.Time) (bool, error) {
	item, ok := m.items[itemKey{kind, id}]
	if !ok {
		return false, workitem.ErrNotFound
	}
	if item.OverdueNotifiedDate.Valid && !item.OverdueNotifiedDate.Time.Before(date) {
		return false, nil
	}
	item.OverdueNotifiedDate.Time = date
	item.OverdueNotifiedDate.Valid = true
	return true, nil
}

func (m *mockWorkItemStore) MarkEscalated(_ context.Context, kind workitem.Kind, id int64, at time.Time) (bool, error) {
	item, ok := m.items[itemKey{kind, id}]
	if !ok {
		return false, workitem.ErrNotFound
	}
	if item.Escalated {
		return false, nil
	}
	item.Escalated = true
	item.EscalatedAt.Time = at
	item.EscalatedAt.Valid = true
	return true, nil
}

func (m *mockWorkItemStore) AppendAudit(_ context.Context, entry *workitem.AuditEntry) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audit = append(m.audit, entry)
	return nil
}

func (m *mockWorkItemStore) ListAudit(_ context.Context, entityType string, entityID int64) ([]*workitem.AuditEntry, error) {
	var out []*workitem.AuditEntry
	for _, e := range m.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ── Mock notification.Gateway ──

type sentMessage struct {
	recipient int64
	hint      notification.ChannelHint
	msg       notification.Message
}

type mockGateway struct {
	sent []sentMessage
	fail map[int64]error
}

func newMockGateway() *mockGateway {
	return &mockGateway{fail: make(map[int64]error)}
}

func (g *mockGateway) Send(_ context.Context, recipientID int64, hint notification.ChannelHint, msg notification.Message) error {
	if err := g.fail[recipientID]; err != nil {
		return err
	}
	g.sent = append(g.sent, sentMessage{recipient: recipientID, hint: hint, msg: msg})
	return nil
}

func (g *mockGateway) sentTo(recipientID int64) int {
	n := 0
	for _, s := range g.sent {
		if s.recipient == recipientID {
			n++
		}
	}
	return n
}

// ── Mock notification.Channel ──

type mockChannel struct {
	name      notification.ChannelHint
	delivered []int64
	err       error
}

func (c *mockChannel) Name() notification.ChannelHint { return c.name }

func (c *mockChannel) Deliver(_ context.Context, recipientID int64, _ notification.Message) error {
	if c.err != nil {
		return c.err
	}
	c.delivered = append(c.delivered, recipientID)
	return nil
}

// ── Mock employee.Repository ──

type mockEmployeeRepo struct {
	employees map[int64]*employee.Employee
	leadsErr  error
}

func newMockEmployeeRepo() *mockEmployeeRepo {
	return &mockEmployeeRepo{employees: make(map[int64]*employee.Employee)}
}

func (m *mockEmployeeRepo) Create(_ context.Context, e *employee.Employee) error {
	e.ID = int64(len(m.employees) + 1)
	m.employees[e.TelegramID] = e
	return nil
}

func (m *mockEmployeeRepo) GetByTelegramID(_ context.Context, telegramID int64) (*employee.Employee, error) {
	if e, ok := m.employees[telegramID]; ok {
		return e, nil
	}
	return nil, employee.ErrNotFound
}

func (m *mockEmployeeRepo) Update(_ context.Context, e *employee.Employee) error {
	if _, ok := m.employees[e.TelegramID]; !ok {
		return employee.ErrNotFound
	}
	m.employees[e.TelegramID] = e
	return nil
}

func (m *mockEmployeeRepo) ListActive(_ context.Context) ([]*employee.Employee, error) {
	var out []*employee.Employee
	for _, e := range m.employees {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEmployeeRepo) ListLeads(_ context.Context, department string) ([]*employee.Employee, error) {
	if m.leadsErr != nil {
		return nil, m.leadsErr
	}
	var out []*employee.Employee
	for _, e := range m.employees {
		if e.IsActive && e.Department == department && (e.Role == employee.RoleLead || e.Role == employee.RoleManager) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

// ── Mock shift.Repository ──

type reportKey struct {
	employeeID  int64
	shiftNumber int
	date        string
}

type mockShiftRepo struct {
	assignments []*shift.Assignment
	reports     map[reportKey]bool
	reportErr   error
	listErr     error
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{reports: make(map[reportKey]bool)}
}

func (m *mockShiftRepo) assign(employeeID int64, department, code string) {
	m.assignments = append(m.assignments, &shift.Assignment{
		ID:         int64(len(m.assignments) + 1),
		EmployeeID: employeeID,
		Department: department,
		ShiftCode:  code,
		IsActive:   true,
	})
}

func (m *mockShiftRepo) file(employeeID int64, shiftNumber int, date time.Time) {
	m.reports[reportKey{employeeID, shiftNumber, date.Format("2006-01-02")}] = true
}

func inDepartments(departments []string, d string) bool {
	if len(departments) == 0 {
		return true
	}
	for _, x := range departments {
		if x == d {
			return true
		}
	}
	return false
}

func (m *mockShiftRepo) ListActiveAssignments(_ context.Context, shiftCode string, departments []string) ([]*shift.Assignment, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*shift.Assignment
	for _, a := range m.assignments {
		if a.IsActive && a.ShiftCode == shiftCode && inDepartments(departments, a.Department) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockShiftRepo) ListAssignmentsByDepartment(_ context.Context, department string) ([]*shift.Assignment, error) {
	var out []*shift.Assignment
	for _, a := range m.assignments {
		if a.Department == department {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockShiftRepo) GetActiveAssignment(_ context.Context, employeeID int64, department string) (*shift.Assignment, error) {
	for _, a := range m.assignments {
		if a.IsActive && a.EmployeeID == employeeID && a.Department == department {
			return a, nil
		}
	}
	return nil, shift.ErrAssignmentMissing
}

func (m *mockShiftRepo) UpsertAssignment(_ context.Context, a *shift.Assignment) error {
	for i, cur := range m.assignments {
		if cur.EmployeeID == a.EmployeeID && cur.Department == a.Department {
			m.assignments[i] = a
			return nil
		}
	}
	a.ID = int64(len(m.assignments) + 1)
	m.assignments = append(m.assignments, a)
	return nil
}

func (m *mockShiftRepo) DeactivateAssignments(_ context.Context, employeeID int64, department string) (int64, error) {
	var n int64
	for _, a := range m.assignments {
		if a.IsActive && a.EmployeeID == employeeID && (department == "" || a.Department == department) {
			a.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *mockShiftRepo) HasReport(_ context.Context, employeeID int64, shiftNumber int, date time.Time) (bool, error) {
	if m.reportErr != nil {
		return false, m.reportErr
	}
	return m.reports[reportKey{employeeID, shiftNumber, date.Format("2006-01-02")}], nil
}

func (m *mockShiftRepo) CreateReport(_ context.Context, r *shift.Report) (bool, error) {
	k := reportKey{r.EmployeeID, r.ShiftNumber, r.ShiftDate.Format("2006-01-02")}
	if m.reports[k] {
		return false, nil
	}
	m.reports[k] = true
	return true, nil
}

// ── Mock shift.ActiveCache ──

type mockShiftCache struct {
	values      map[string]string
	invalidated int
}

func newMockShiftCache() *mockShiftCache {
	return &mockShiftCache{values: make(map[string]string)}
}

func (c *mockShiftCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return "", shift.ErrCacheMiss
}

func (c *mockShiftCache) Set(_ context.Context, key, code string, _ time.Duration) error {
	c.values[key] = code
	return nil
}

func (c *mockShiftCache) Invalidate(_ context.Context) error {
	c.values = make(map[string]string)
	c.invalidated++
	return nil
}

// ── Mock event.Store ──

type alarmKey struct {
	eventID    int64
	department string
	alarmType  event.AlarmType
}

type notifKey struct {
	eventID     int64
	recipientID int64
	alarmType   event.AlarmType
}

type mockEventStore struct {
	events     []*event.ScheduledEvent
	records    map[alarmKey]*event.AlarmRecord
	recipients map[string][]int64
	notified   map[notifKey]bool
	inserts    int
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{
		records:    make(map[alarmKey]*event.AlarmRecord),
		recipients: make(map[string][]int64),
		notified:   make(map[notifKey]bool),
	}
}

func (m *mockEventStore) ListEventsNeedingAlarm(_ context.Context, today time.Time, horizonDays int) ([]*event.ScheduledEvent, error) {
	last := today.AddDate(0, 0, horizonDays)
	var out []*event.ScheduledEvent
	for _, ev := range m.events {
		if ev.Status != event.StatusScheduled && ev.Status != event.StatusConfirmed {
			continue
		}
		if ev.EventDate.Before(today) || ev.EventDate.After(last) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (m *mockEventStore) GetAlarmRecord(_ context.Context, eventID int64, department string, t event.AlarmType) (*event.AlarmRecord, error) {
	if r, ok := m.records[alarmKey{eventID, department, t}]; ok {
		return r, nil
	}
	return nil, event.ErrAlarmRecordNotFound
}

func (m *mockEventStore) UpsertAlarmRecord(_ context.Context, eventID int64, department string, t event.AlarmType) (*event.AlarmRecord, error) {
	k := alarmKey{eventID, department, t}
	if r, ok := m.records[k]; ok {
		return r, nil
	}
	r := &event.AlarmRecord{ID: int64(len(m.records) + 1), EventID: eventID, Department: department, AlarmType: t}
	m.records[k] = r
	return r, nil
}

func (m *mockEventStore) byID(id int64) *event.AlarmRecord {
	for _, r := range m.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *mockEventStore) UpdateLastSent(_ context.Context, recordID int64, at time.Time) error {
	r := m.byID(recordID)
	if r == nil {
		return event.ErrAlarmRecordNotFound
	}
	r.LastSentAt.Time = at
	r.LastSentAt.Valid = true
	return nil
}

func (m *mockEventStore) SetMilestone(_ context.Context, recordID int64, ms event.Milestone, evidence string) (bool, error) {
	r := m.byID(recordID)
	if r == nil {
		return false, event.ErrAlarmRecordNotFound
	}
	var flag *bool
	switch ms {
	case event.MilestoneAcknowledged:
		flag = &r.Acknowledged
	case event.MilestoneConfirmed:
		flag = &r.Confirmed
	case event.MilestoneReadyConfirmed:
		flag = &r.ReadyConfirmed
	default:
		return false, event.ErrUnknownMilestone
	}
	if *flag {
		return false, nil
	}
	*flag = true
	if ms == event.MilestoneReadyConfirmed && evidence != "" {
		r.ReadyEvidence.String = evidence
		r.ReadyEvidence.Valid = true
	}
	return true, nil
}

func (m *mockEventStore) ListAlarmRecords(_ context.Context, eventID int64) ([]*event.AlarmRecord, error) {
	var out []*event.AlarmRecord
	for _, r := range m.records {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockEventStore) ListDepartmentRecipients(_ context.Context, _ int64, department string) ([]int64, error) {
	return m.recipients[department], nil
}

func (m *mockEventStore) ListNotifiedRecipients(_ context.Context, eventID int64, t event.AlarmType) ([]int64, error) {
	var out []int64
	for k := range m.notified {
		if k.eventID == eventID && k.alarmType == t {
			out = append(out, k.recipientID)
		}
	}
	return out, nil
}

func (m *mockEventStore) RecordUserNotification(_ context.Context, n *event.UserNotification) (bool, error) {
	k := notifKey{n.EventID, n.RecipientID, n.AlarmType}
	if m.notified[k] {
		return false, nil
	}
	m.notified[k] = true
	m.inserts++
	return true, nil
}
