// Package repotest provides an in-memory implementation of the repositories
// for service and handler tests.
package repotest

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/app/repository"
	"gorm.io/gorm"
)

// Store keeps all rows in maps. Transactions are serialized and rolled back
// from a snapshot when the callback fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users       map[uint]models.User
	complaints  map[uint]models.Complaint
	contractors map[uint]models.Contractor
	deletedIDs  map[string]bool
	nextID      uint

	// BeforeComplaintCreate lets tests inject storage errors such as duplicate keys.
	BeforeComplaintCreate func(c *models.Complaint) error
	// Now stamps created rows; defaults to time.Now.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:       map[uint]models.User{},
		complaints:  map[uint]models.Complaint{},
		contractors: map[uint]models.Contractor{},
		deletedIDs:  map[string]bool{},
		Now:         time.Now,
	}
}

// Repositories returns repositories backed by the store.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:       &userRepo{s},
		Complaint:  &complaintRepo{s},
		Contractor: &contractorRepo{s},
	}
}

// Transaction implements repository.Transactor.
func (s *Store) Transaction(fn func(tx *repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s.Repositories()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	users       map[uint]models.User
	complaints  map[uint]models.Complaint
	contractors map[uint]models.Contractor
	deletedIDs  map[string]bool
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		users:       make(map[uint]models.User, len(s.users)),
		complaints:  make(map[uint]models.Complaint, len(s.complaints)),
		contractors: make(map[uint]models.Contractor, len(s.contractors)),
		deletedIDs:  make(map[string]bool, len(s.deletedIDs)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.complaints {
		snap.complaints[k] = v
	}
	for k, v := range s.contractors {
		snap.contractors[k] = v
	}
	for k, v := range s.deletedIDs {
		snap.deletedIDs[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.complaints = snap.complaints
	s.contractors = snap.contractors
	s.deletedIDs = snap.deletedIDs
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// Complaint returns the stored complaint row, for assertions.
func (s *Store) Complaint(reportID string) (models.Complaint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.complaints {
		if c.ReportID == reportID {
			return c, true
		}
	}
	return models.Complaint{}, false
}

// Contractor returns the stored contractor row, for assertions.
func (s *Store) Contractor(id uint) (models.Contractor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contractors[id]
	return c, ok
}

func ptr[T any](v T) *T { return &v }

// ---- users ----

type userRepo struct{ s *Store }

func (r *userRepo) Create(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Name == user.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = r.s.id()
	user.CreatedAt = r.s.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByName(name string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Name == name {
			return ptr(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepo) Update(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = r.s.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) ListWithComplaintCounts(offset, limit int) ([]models.UserWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []models.User
	for _, u := range r.s.users {
		if u.Role == models.ROLE_USER {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	users = page(users, offset, limit)
	result := make([]models.UserWithCount, 0, len(users))
	for _, u := range users {
		var n int64
		for _, c := range r.s.complaints {
			if c.UserID == u.ID {
				n++
			}
		}
		result = append(result, models.UserWithCount{User: u, ComplaintCount: n})
	}
	return result, nil
}

func (r *userRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.Role == models.ROLE_USER {
			n++
		}
	}
	return n, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ---- complaints ----

type complaintRepo struct{ s *Store }

func (r *complaintRepo) hydrate(c models.Complaint) *models.Complaint {
	if u, ok := r.s.users[c.UserID]; ok {
		c.User = ptr(u)
	}
	c.AssignedTo = nil
	if c.AssignedToID != nil {
		if k, ok := r.s.contractors[*c.AssignedToID]; ok {
			c.AssignedTo = ptr(k)
		}
	}
	return &c
}

func (r *complaintRepo) Create(complaint *models.Complaint) error {
	if hook := r.s.BeforeComplaintCreate; hook != nil {
		if err := hook(complaint); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.deletedIDs[complaint.ReportID] {
		return gorm.ErrDuplicatedKey
	}
	for _, c := range r.s.complaints {
		if c.ReportID == complaint.ReportID {
			return gorm.ErrDuplicatedKey
		}
	}
	complaint.ID = r.s.id()
	complaint.SubmittedAt = r.s.Now()
	complaint.UpdatedAt = complaint.SubmittedAt
	stored := *complaint
	stored.User, stored.AssignedTo = nil, nil
	r.s.complaints[complaint.ID] = stored
	return nil
}

func (r *complaintRepo) find(reportID string) (models.Complaint, bool) {
	for _, c := range r.s.complaints {
		if c.ReportID == reportID {
			return c, true
		}
	}
	return models.Complaint{}, false
}

func (r *complaintRepo) GetByReportID(reportID string) (*models.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.find(reportID)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.hydrate(c), nil
}

func (r *complaintRepo) GetByReportIDLocked(reportID string, _ repository.LockMode) (*models.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.find(reportID)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *complaintRepo) ReportIDExists(reportID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.deletedIDs[reportID] {
		return true, nil
	}
	_, ok := r.find(reportID)
	return ok, nil
}

func (r *complaintRepo) SaveAssignment(complaint *models.Complaint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.complaints[complaint.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if complaint.AssignedToID != nil {
		if _, ok := r.s.contractors[*complaint.AssignedToID]; !ok {
			return gorm.ErrForeignKeyViolated
		}
		c.AssignedToID = ptr(*complaint.AssignedToID)
	} else {
		c.AssignedToID = nil
	}
	if complaint.AssignedAt != nil {
		c.AssignedAt = ptr(*complaint.AssignedAt)
	} else {
		c.AssignedAt = nil
	}
	c.Status = complaint.Status
	c.UpdatedAt = r.s.Now()
	r.s.complaints[c.ID] = c
	return nil
}

func (r *complaintRepo) SaveStatus(complaint *models.Complaint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.complaints[complaint.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = complaint.Status
	c.UpdatedAt = r.s.Now()
	r.s.complaints[c.ID] = c
	return nil
}

func (r *complaintRepo) Delete(id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.complaints[id]
	if !ok {
		return nil
	}
	r.s.deletedIDs[c.ReportID] = true
	delete(r.s.complaints, id)
	return nil
}

func (r *complaintRepo) matches(c models.Complaint, f repository.ComplaintFilter) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	switch f.Contractor {
	case "":
	case repository.ContractorFilterUnassigned:
		if c.AssignedToID != nil {
			return false
		}
	case repository.ContractorFilterAssigned:
		if c.AssignedToID == nil {
			return false
		}
	default:
		if id, err := strconv.ParseUint(f.Contractor, 10, 64); err == nil {
			if c.AssignedToID == nil || uint64(*c.AssignedToID) != id {
				return false
			}
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		name := ""
		if u, ok := r.s.users[c.UserID]; ok {
			name = u.Name
		}
		if !strings.Contains(strings.ToLower(c.ReportID), q) &&
			!strings.Contains(strings.ToLower(c.Category), q) &&
			!strings.Contains(strings.ToLower(name), q) {
			return false
		}
	}
	return true
}

func (r *complaintRepo) sorted(keep func(models.Complaint) bool) []models.Complaint {
	var out []models.Complaint
	for _, c := range r.s.complaints {
		if keep(c) {
			out = append(out, *r.hydrate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *complaintRepo) List(filter repository.ComplaintFilter) ([]models.Complaint, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted(func(c models.Complaint) bool { return r.matches(c, filter) })
	return page(all, filter.Offset, filter.Limit), int64(len(all)), nil
}

func (r *complaintRepo) ListByUser(userID uint) ([]models.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(c models.Complaint) bool { return c.UserID == userID }), nil
}

func (r *complaintRepo) ListByAssignee(contractorID uint) ([]models.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.sorted(func(c models.Complaint) bool { return c.IsAssignedTo(contractorID) })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].AssignedAt, out[j].AssignedAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		if !a.Equal(*b) {
			return a.After(*b)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *complaintRepo) CountByAssignee(contractorID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.complaints {
		if c.IsAssignedTo(contractorID) {
			n++
		}
	}
	return n, nil
}

func inScope(c models.Complaint, scope repository.ComplaintScope) bool {
	if scope.UserID != 0 && c.UserID != scope.UserID {
		return false
	}
	if scope.AssignedToID != 0 && !c.IsAssignedTo(scope.AssignedToID) {
		return false
	}
	if scope.AssignedOnly && c.AssignedToID == nil {
		return false
	}
	return true
}

func (r *complaintRepo) CountByStatus(scope repository.ComplaintScope) (models.StatusCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var counts models.StatusCounts
	for _, c := range r.s.complaints {
		if inScope(c, scope) {
			counts.Add(c.Status, 1)
		}
	}
	return counts, nil
}

func (r *complaintRepo) CountByCategory() ([]models.CategoryCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byCat := map[string]int64{}
	for _, c := range r.s.complaints {
		byCat[c.Category]++
	}
	result := make([]models.CategoryCount, 0, len(byCat))
	for cat, n := range byCat {
		result = append(result, models.CategoryCount{Category: cat, Label: models.CategoryLabel(cat), Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

func (r *complaintRepo) CountUnassigned() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.complaints {
		if c.AssignedToID == nil {
			n++
		}
	}
	return n, nil
}

func (r *complaintRepo) CountPerMonth(since time.Time, scope repository.ComplaintScope) ([]repository.MonthStatusCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type key struct{ month, status string }
	counts := map[key]int64{}
	for _, c := range r.s.complaints {
		if c.SubmittedAt.Before(since) || !inScope(c, scope) {
			continue
		}
		counts[key{c.SubmittedAt.Format("2006-01"), c.Status}]++
	}
	rows := make([]repository.MonthStatusCount, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, repository.MonthStatusCount{Month: k.month, Status: k.status, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].Status < rows[j].Status
	})
	return rows, nil
}

func (r *complaintRepo) CountAssignedPerMonth(contractorID uint, since time.Time) ([]models.MonthlyCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int64{}
	for _, c := range r.s.complaints {
		if !c.IsAssignedTo(contractorID) || c.AssignedAt == nil || c.AssignedAt.Before(since) {
			continue
		}
		counts[c.AssignedAt.Format("2006-01")]++
	}
	rows := make([]models.MonthlyCount, 0, len(counts))
	for m, n := range counts {
		rows = append(rows, models.MonthlyCount{Month: m, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows, nil
}

// ---- contractors ----

type contractorRepo struct{ s *Store }

func (r *contractorRepo) emailTaken(email string, except uint) bool {
	for _, c := range r.s.contractors {
		if c.ID != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (r *contractorRepo) Create(contractor *models.Contractor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(contractor.Email, 0) {
		return gorm.ErrDuplicatedKey
	}
	contractor.ID = r.s.id()
	contractor.CreatedAt = r.s.Now()
	contractor.UpdatedAt = contractor.CreatedAt
	r.s.contractors[contractor.ID] = *contractor
	return nil
}

func (r *contractorRepo) GetByID(id uint) (*models.Contractor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contractors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *contractorRepo) GetByIDLocked(id uint, _ repository.LockMode) (*models.Contractor, error) {
	return r.GetByID(id)
}

func (r *contractorRepo) GetByEmail(email string) (*models.Contractor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.contractors {
		if strings.EqualFold(c.Email, email) {
			return ptr(c), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *contractorRepo) Update(contractor *models.Contractor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contractors[contractor.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if r.emailTaken(contractor.Email, contractor.ID) {
		return gorm.ErrDuplicatedKey
	}
	contractor.UpdatedAt = r.s.Now()
	r.s.contractors[contractor.ID] = *contractor
	return nil
}

// Delete mimics the ON DELETE RESTRICT foreign key of complaints.assigned_to_id.
func (r *contractorRepo) Delete(id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.complaints {
		if c.IsAssignedTo(id) {
			return gorm.ErrForeignKeyViolated
		}
	}
	delete(r.s.contractors, id)
	return nil
}

func (r *contractorRepo) counts(id uint) (total, open int64) {
	for _, c := range r.s.complaints {
		if c.IsAssignedTo(id) {
			total++
			if !c.IsTerminal() {
				open++
			}
		}
	}
	return total, open
}

func (r *contractorRepo) byName() []models.Contractor {
	out := make([]models.Contractor, 0, len(r.s.contractors))
	for _, c := range r.s.contractors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *contractorRepo) ListWithCounts() ([]models.ContractorWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []models.ContractorWithCount
	for _, c := range r.byName() {
		total, _ := r.counts(c.ID)
		result = append(result, models.ContractorWithCount{Contractor: c, AssignedCount: total})
	}
	return result, nil
}

func (r *contractorRepo) ListActive() ([]models.Contractor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []models.Contractor
	for _, c := range r.byName() {
		if c.IsActive {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *contractorRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.contractors)), nil
}

func (r *contractorRepo) CountActive() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.contractors {
		if c.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *contractorRepo) Workload() ([]models.ContractorWorkload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []models.ContractorWorkload
	for _, c := range r.byName() {
		total, open := r.counts(c.ID)
		result = append(result, models.ContractorWorkload{ContractorID: c.ID, Name: c.Name, Assigned: total, Open: open})
	}
	repository.SortWorkload(result)
	return result, nil
}
