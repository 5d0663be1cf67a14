package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"hr-request-backend/internal/clock"
	"hr-request-backend/internal/model"
	"hr-request-backend/internal/repository"
)

// memStore is an in-memory repository.Store. Writes inside a transaction are
// undone on rollback and per-empid locks are held until the transaction ends.
type memStore struct {
	mu        sync.Mutex
	employees map[string]model.Employee
	requests  []model.Request
	punches   []model.AttendancePunch
	holidays  []model.Holiday
	nextReqID uint
	nextPunch uint

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// failure injection
	createErrs []error // popped by each Requests.Create
	punchErr   error
	listErr    error
	txCount    int
	// ops of every finished transaction, in commit/rollback order
	trace [][]string
}

func newMemStore(emps ...model.Employee) *memStore {
	s := &memStore{employees: map[string]model.Employee{}, locks: map[string]*sync.Mutex{}}
	for i, e := range emps {
		e.InternalID = uint(i + 1)
		s.employees[e.Empid] = e
	}
	return s
}

type memTx struct {
	ops   []string
	undo  []func()
	held  map[string]*sync.Mutex
	store *memStore
}

func (t *memTx) record(op string) {
	if t != nil {
		t.ops = append(t.ops, op)
	}
}

func (t *memTx) onRollback(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

func (s *memStore) repos(tx *memTx) repository.Repositories {
	return repository.Repositories{
		Employees: &memEmployees{s, tx},
		Requests:  &memRequests{s, tx},
		Punches:   &memPunches{s, tx},
		Holidays:  &memHolidays{s},
		Locker:    &memLocker{s, tx},
		Dashboard: &memDashboard{s},
	}
}

func (s *memStore) Repositories() repository.Repositories { return s.repos(nil) }

func (s *memStore) WithinTransaction(ctx context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	s.txCount++
	s.mu.Unlock()

	tx := &memTx{held: map[string]*sync.Mutex{}, store: s}
	defer func() {
		s.mu.Lock()
		s.trace = append(s.trace, tx.ops)
		s.mu.Unlock()
		for _, m := range tx.held {
			m.Unlock()
		}
	}()
	err := fn(s.repos(tx))
	if err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
	}
	return err
}

func punchDate(p model.AttendancePunch) string {
	return time.Time(p.Date).Format(clock.DateLayout)
}

func (s *memStore) request(id uint) (model.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id {
			return r, true
		}
	}
	return model.Request{}, false
}

func (s *memStore) allRequests() []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Request(nil), s.requests...)
}

func (s *memStore) allPunches() []model.AttendancePunch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AttendancePunch(nil), s.punches...)
}

// seed stores a request bypassing every rule.
func (s *memStore) seed(r model.Request) model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextReqID++
	r.ID = s.nextReqID
	if r.Status == "" {
		r.Status = model.StatusPending
	}
	s.requests = append(s.requests, r)
	return r
}

type memEmployees struct {
	s  *memStore
	tx *memTx
}

func (r *memEmployees) FindByEmpid(ctx context.Context, empid string) (*model.Employee, error) {
	r.tx.record("employee " + empid)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[empid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *memEmployees) GetByReportsTo(ctx context.Context, managerEmpid string) ([]model.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Employee
	for _, e := range r.s.employees {
		if e.ReportsToEmpid != nil && *e.ReportsToEmpid == managerEmpid {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memRequests struct {
	s  *memStore
	tx *memTx
}

func (r *memRequests) Create(ctx context.Context, req *model.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.createErrs) > 0 {
		err := r.s.createErrs[0]
		r.s.createErrs = r.s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	r.s.nextReqID++
	req.ID = r.s.nextReqID
	req.CreatedAt = req.AppliedAt
	req.UpdatedAt = req.AppliedAt
	r.s.requests = append(r.s.requests, *req)
	id := req.ID
	r.tx.onRollback(func() {
		for i, x := range r.s.requests {
			if x.ID == id {
				r.s.requests = append(r.s.requests[:i], r.s.requests[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *memRequests) GetByID(ctx context.Context, id uint) (*model.Request, error) {
	r.tx.record("request")
	req, ok := r.s.request(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r *memRequests) CountActive(ctx context.Context, empid string, kind model.RequestKind, from, to time.Time) (int64, error) {
	r.tx.record("count " + empid)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, x := range r.s.requests {
		if x.Empid == empid && x.Kind == kind && x.Status != model.StatusRejected &&
			!x.FromTs.Before(from) && x.FromTs.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *memRequests) FindOverlapping(ctx context.Context, empid string, from, to time.Time, excludeID uint) ([]model.Request, error) {
	r.tx.record("overlap " + empid)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Request
	for _, x := range r.s.requests {
		if x.Empid == empid && x.ID != excludeID && x.Status != model.StatusRejected &&
			x.FromTs.Before(to) && x.ToTs.After(from) {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromTs.Before(out[j].FromTs) })
	return out, nil
}

func (r *memRequests) Transition(ctx context.Context, id uint, status model.RequestStatus, deciderEmpid, deciderName string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.requests {
		x := &r.s.requests[i]
		if x.ID != id || x.Status != model.StatusPending {
			continue
		}
		old := *x
		empid, name, decidedAt := deciderEmpid, deciderName, at
		x.Status = status
		x.DecidedByEmpid = &empid
		x.DecidedByName = &name
		x.DecidedAt = &decidedAt
		x.UpdatedAt = at
		r.tx.onRollback(func() {
			for j := range r.s.requests {
				if r.s.requests[j].ID == id {
					r.s.requests[j] = old
				}
			}
		})
		return true, nil
	}
	return false, nil
}

func (r *memRequests) List(ctx context.Context, f repository.ListFilter, limit int) ([]model.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.listErr != nil {
		return nil, r.s.listErr
	}
	var out []model.Request
	for _, x := range r.s.requests {
		if r.s.inScope(x, f) {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].AppliedAt.After(out[j].AppliedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memPunches struct {
	s  *memStore
	tx *memTx
}

func samePunch(a, b model.AttendancePunch) bool {
	return a.Empid == b.Empid && punchDate(a) == punchDate(b) &&
		a.PunchKind == b.PunchKind && a.PunchTs.Equal(b.PunchTs)
}

func (r *memPunches) CreateDerived(ctx context.Context, punches []model.AttendancePunch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.punchErr != nil {
		return r.s.punchErr
	}
	for _, p := range punches {
		dup := false
		for _, x := range r.s.punches {
			if samePunch(x, p) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		r.s.nextPunch++
		p.ID = r.s.nextPunch
		r.s.punches = append(r.s.punches, p)
		id := p.ID
		r.tx.onRollback(func() {
			for i, x := range r.s.punches {
				if x.ID == id {
					r.s.punches = append(r.s.punches[:i], r.s.punches[i+1:]...)
					return
				}
			}
		})
	}
	return nil
}

func (r *memPunches) GetByRequestID(ctx context.Context, requestID uint) ([]model.AttendancePunch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.AttendancePunch
	for _, p := range r.s.punches {
		if p.RequestID != nil && *p.RequestID == requestID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memHolidays struct{ s *memStore }

func (r *memHolidays) GetAll(ctx context.Context) ([]model.Holiday, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]model.Holiday(nil), r.s.holidays...), nil
}

func (r *memHolidays) Create(ctx context.Context, h *model.Holiday) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h.ID = uint(len(r.s.holidays) + 1)
	r.s.holidays = append(r.s.holidays, *h)
	return nil
}

func (r *memHolidays) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, h := range r.s.holidays {
		if h.ID == id {
			r.s.holidays = append(r.s.holidays[:i], r.s.holidays[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memHolidays) IsHoliday(ctx context.Context, date string) (bool, error) {
	dates, _ := r.HolidayDates(ctx, date, date)
	return len(dates) > 0, nil
}

func (r *memHolidays) GetByID(ctx context.Context, id uint) (*model.Holiday, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range r.s.holidays {
		if h.ID == id {
			return &h, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memHolidays) Update(ctx context.Context, h *model.Holiday) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.holidays {
		if r.s.holidays[i].ID == h.ID {
			r.s.holidays[i] = *h
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memHolidays) HolidayDates(ctx context.Context, from, to string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, h := range r.s.holidays {
		if h.Date >= from && h.Date <= to {
			out = append(out, h.Date)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memLocker struct {
	s  *memStore
	tx *memTx
}

func (l *memLocker) Lock(ctx context.Context, empid string) error {
	if l.tx == nil {
		panic("Lock outside a transaction")
	}
	l.tx.record("lock " + empid)
	if _, ok := l.tx.held[empid]; ok {
		return nil
	}
	l.s.locksMu.Lock()
	m, ok := l.s.locks[empid]
	if !ok {
		m = &sync.Mutex{}
		l.s.locks[empid] = m
	}
	l.s.locksMu.Unlock()
	m.Lock()
	l.tx.held[empid] = m
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

type notifyCall struct {
	reviewer string
	request  uint
}

func (n *recordingNotifier) NotifyReviewer(ctx context.Context, reviewer model.Employee, req model.Request) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{reviewer: reviewer.Empid, request: req.ID})
	return n.err
}

// inScope mirrors the repository list filter. Callers hold s.mu.
func (s *memStore) inScope(x model.Request, f repository.ListFilter) bool {
	if f.Empid != "" && x.Empid != f.Empid {
		return false
	}
	if f.Status != "" && x.Status != f.Status {
		return false
	}
	if f.Kind != "" && x.Kind != f.Kind {
		return false
	}
	if f.ReportsToEmpid != "" {
		e, ok := s.employees[x.Empid]
		if !ok || e.ReportsToEmpid == nil || *e.ReportsToEmpid != f.ReportsToEmpid {
			return false
		}
	}
	return true
}

type memDashboard struct{ s *memStore }

func (d *memDashboard) RequestStats(ctx context.Context, f repository.ListFilter, from, to time.Time) ([]repository.StatusCount, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if d.s.listErr != nil {
		return nil, d.s.listErr
	}
	counts := map[[2]string]int64{}
	for _, x := range d.s.requests {
		if d.s.inScope(x, f) && !x.FromTs.Before(from) && x.FromTs.Before(to) {
			counts[[2]string{string(x.Kind), string(x.Status)}]++
		}
	}
	var out []repository.StatusCount
	for k, n := range counts {
		out = append(out, repository.StatusCount{Kind: model.RequestKind(k[0]), Status: model.RequestStatus(k[1]), Count: n})
	}
	return out, nil
}

func (d *memDashboard) CountActiveEmployees(ctx context.Context, reportsTo string) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, e := range d.s.employees {
		if !e.Active {
			continue
		}
		if reportsTo != "" && (e.ReportsToEmpid == nil || *e.ReportsToEmpid != reportsTo) {
			continue
		}
		n++
	}
	return n, nil
}
