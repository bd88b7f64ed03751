package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	"maintenance-service/pkg/constants"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/eventbus"
	"maintenance-service/pkg/types"
	"maintenance-service/pkg/utils"
)

// memStore - общая память фейковых репозиториев. fakeTxManager делает снимок
// перед транзакцией и восстанавливает его при ошибке.
type memStore struct {
	mu         sync.Mutex
	equipments map[uint64]entities.Equipment
	statuses   map[uint64]entities.MaintenanceStatus
	headers    []entities.MaintenanceStatusHeader
	details    []entities.MaintenanceStatusDetail
	schedules  []entities.ScheduledMaintenance
	users      map[uint64]entities.User
	nextID     uint64
	clock      time.Time

	failScheduleCreate error
	failHeaderCreate   error
	failDetailCreate   error
}

type memSnapshot struct {
	equipments map[uint64]entities.Equipment
	headers    []entities.MaintenanceStatusHeader
	details    []entities.MaintenanceStatusDetail
	schedules  []entities.ScheduledMaintenance
	nextID     uint64
}

func newMemStore() *memStore {
	return &memStore{
		equipments: map[uint64]entities.Equipment{},
		statuses: map[uint64]entities.MaintenanceStatus{
			constants.MaintenanceStatusOperationID:   {ID: 1, Code: constants.MaintenanceStatusOperationCode, Name: "В эксплуатации", Active: true},
			constants.MaintenanceStatusMaintenanceID: {ID: 2, Code: constants.MaintenanceStatusMaintenanceCode, Name: "На обслуживании", Active: true},
			constants.MaintenanceStatusScheduledID:   {ID: 3, Code: constants.MaintenanceStatusScheduledCode, Name: "Запланировано", Active: true},
		},
		users:  map[uint64]entities.User{},
		nextID: 100,
		clock:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq := make(map[uint64]entities.Equipment, len(m.equipments))
	for k, v := range m.equipments {
		eq[k] = v
	}
	return memSnapshot{
		equipments: eq,
		headers:    append([]entities.MaintenanceStatusHeader(nil), m.headers...),
		details:    append([]entities.MaintenanceStatusDetail(nil), m.details...),
		schedules:  append([]entities.ScheduledMaintenance(nil), m.schedules...),
		nextID:     m.nextID,
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equipments = s.equipments
	m.headers = s.headers
	m.details = s.details
	m.schedules = s.schedules
	m.nextID = s.nextID
}

func (m *memStore) addEquipment(active bool) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.equipments[id] = entities.Equipment{
		ID: id, Description: "Насос", LocationID: 1, Serial: "SN", Model: "M",
		Active: active, CreatedAt: m.clock, UpdatedAt: m.clock,
	}
	return id
}

func (m *memStore) activeHeaders(equipmentID uint64) []entities.MaintenanceStatusHeader {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.MaintenanceStatusHeader
	for _, h := range m.headers {
		if h.EquipmentID == equipmentID && h.Active {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStore) activeDetails(equipmentID uint64) []entities.MaintenanceStatusDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.MaintenanceStatusDetail
	for _, d := range m.details {
		if d.EquipmentID == equipmentID && d.Active {
			out = append(out, d)
		}
	}
	return out
}

func (m *memStore) activeSchedules(equipmentID uint64) []entities.ScheduledMaintenance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.ScheduledMaintenance
	for _, s := range m.schedules {
		if s.EquipmentID == equipmentID && s.Active {
			out = append(out, s)
		}
	}
	return out
}

// ---------- tx ----------

type fakeTxManager struct {
	store *memStore
	runs  int
}

func (f *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.runs++
	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

// ---------- equipment ----------

type fakeEquipmentRepo struct{ store *memStore }

func (r *fakeEquipmentRepo) GetEquipments(ctx context.Context, filter types.Filter, withStatus bool) ([]entities.EquipmentWithStatus, uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	list := make([]entities.EquipmentWithStatus, 0, len(r.store.equipments))
	for _, e := range r.store.equipments {
		item := entities.EquipmentWithStatus{Equipment: e}
		if withStatus {
			for _, h := range r.store.headers {
				if h.EquipmentID == e.ID && h.Active {
					st := r.store.statuses[h.StatusID]
					item.StatusID = null.Uint64From(st.ID)
					item.StatusCode = null.StringFrom(st.Code)
					item.StatusName = null.StringFrom(st.Name)
				}
			}
		}
		list = append(list, item)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, uint64(len(list)), nil
}

func (r *fakeEquipmentRepo) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.equipments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &e, nil
}

func (r *fakeEquipmentRepo) LockActive(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	e, err := r.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !e.Active {
		return nil, apperrors.ErrNotFound
	}
	return e, nil
}

func (r *fakeEquipmentRepo) Create(ctx context.Context, tx pgx.Tx, e entities.Equipment) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e.ID = r.store.id()
	e.Active = true
	e.CreatedAt = r.store.tick()
	e.UpdatedAt = e.CreatedAt
	r.store.equipments[e.ID] = e
	return e.ID, nil
}

func (r *fakeEquipmentRepo) Update(ctx context.Context, tx pgx.Tx, id uint64, e entities.Equipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.equipments[id]
	if !ok || !cur.Active {
		return apperrors.ErrNotFound
	}
	e.ID = id
	e.Active = true
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = r.store.tick()
	r.store.equipments[id] = e
	return nil
}

func (r *fakeEquipmentRepo) Deactivate(ctx context.Context, tx pgx.Tx, id uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.equipments[id]
	if !ok || !cur.Active {
		return apperrors.ErrNotFound
	}
	cur.Active = false
	r.store.equipments[id] = cur
	return nil
}

// ---------- maintenance status ----------

type fakeStatusRepo struct{ store *memStore }

func (r *fakeStatusRepo) FindStatus(ctx context.Context, tx pgx.Tx, id uint64) (*entities.MaintenanceStatus, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.statuses[id]
	if !ok || !s.Active {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r *fakeStatusRepo) GetCurrentHeader(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.MaintenanceStatusHeader, error) {
	active := r.store.activeHeaders(equipmentID)
	if len(active) == 0 {
		return nil, apperrors.ErrNotFound
	}
	h := active[0]
	return &h, nil
}

func (r *fakeStatusRepo) DeactivateCurrent(ctx context.Context, tx pgx.Tx, equipmentID uint64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := r.store.tick()
	closed := map[uint64]bool{}
	for i := range r.store.headers {
		h := &r.store.headers[i]
		if h.EquipmentID == equipmentID && h.Active {
			h.Active = false
			h.ValidTo = &now
			closed[h.ID] = true
		}
	}
	for i := range r.store.details {
		if closed[r.store.details[i].HeaderID] {
			r.store.details[i].Active = false
		}
	}
	return int64(len(closed)), nil
}

func (r *fakeStatusRepo) CreateHeader(ctx context.Context, tx pgx.Tx, equipmentID, statusID uint64) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failHeaderCreate != nil {
		return 0, r.store.failHeaderCreate
	}
	for _, h := range r.store.headers {
		if h.EquipmentID == equipmentID && h.Active {
			return 0, apperrors.ErrConflict
		}
	}
	h := entities.MaintenanceStatusHeader{
		ID: r.store.id(), EquipmentID: equipmentID, StatusID: statusID, Active: true, CreatedAt: r.store.tick(),
	}
	r.store.headers = append(r.store.headers, h)
	return h.ID, nil
}

func (r *fakeStatusRepo) CreateDetail(ctx context.Context, tx pgx.Tx, d entities.MaintenanceStatusDetail) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failDetailCreate != nil {
		return 0, r.store.failDetailCreate
	}
	d.ID = r.store.id()
	d.Active = true
	d.CreatedAt = r.store.clock
	r.store.details = append(r.store.details, d)
	return d.ID, nil
}

func (r *fakeStatusRepo) QueryStatuses(ctx context.Context, filter dto.MaintenanceStatusFilter) ([]dto.MaintenanceStatusRecordDTO, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []dto.MaintenanceStatusRecordDTO
	for _, h := range r.store.headers {
		if !h.Active || (filter.EquipmentID != nil && *filter.EquipmentID != h.EquipmentID) {
			continue
		}
		e := r.store.equipments[h.EquipmentID]
		if !e.Active {
			continue
		}
		for _, d := range r.store.details {
			if d.HeaderID != h.ID || !d.Active {
				continue
			}
			rec := dto.MaintenanceStatusRecordDTO{
				MaintenanceStatusCabID: h.ID, MaintenanceStatusDetID: d.ID,
				EquipmentID: e.ID, Description: e.Description, Serial: e.Serial, Model: e.Model,
				MaintenanceStatusID: h.StatusID, StatusName: r.store.statuses[h.StatusID].Name,
				UserID: d.UserID, CreatedAt: utils.FormatDateTime(h.CreatedAt),
			}
			if h.StatusID == constants.MaintenanceStatusScheduledID {
				for _, s := range r.store.schedules {
					if s.EquipmentID == h.EquipmentID && s.Active {
						rec.ScheduledDate = null.TimeFrom(s.ScheduledDate)
					}
				}
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeStatusRepo) GetHistory(ctx context.Context, equipmentID uint64, from, to *time.Time) ([]dto.MaintenanceHistoryDTO, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []dto.MaintenanceHistoryDTO
	for i := len(r.store.headers) - 1; i >= 0; i-- {
		h := r.store.headers[i]
		if h.EquipmentID != equipmentID {
			continue
		}
		if from != nil && h.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !h.CreatedAt.Before(*to) {
			continue
		}
		item := dto.MaintenanceHistoryDTO{
			MaintenanceStatusCabID: h.ID, MaintenanceStatusID: h.StatusID,
			StatusName: r.store.statuses[h.StatusID].Name, Active: h.Active,
			CreatedAt: utils.FormatDateTime(h.CreatedAt), ValidTo: null.TimeFromPtr(h.ValidTo),
		}
		for _, d := range r.store.details {
			if d.HeaderID == h.ID {
				item.UserID = null.Uint64From(d.UserID)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// ---------- schedules ----------

type fakeScheduleRepo struct{ store *memStore }

func (r *fakeScheduleRepo) FindActive(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.ScheduledMaintenance, error) {
	active := r.store.activeSchedules(equipmentID)
	if len(active) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &active[0], nil
}

func (r *fakeScheduleRepo) DeactivateActive(ctx context.Context, tx pgx.Tx, equipmentID uint64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := r.store.tick()
	var n int64
	for i := range r.store.schedules {
		s := &r.store.schedules[i]
		if s.EquipmentID == equipmentID && s.Active {
			s.Active = false
			s.ClosedAt = &now
			n++
		}
	}
	return n, nil
}

func (r *fakeScheduleRepo) Create(ctx context.Context, tx pgx.Tx, equipmentID uint64, scheduledDate time.Time) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failScheduleCreate != nil {
		return 0, r.store.failScheduleCreate
	}
	for _, s := range r.store.schedules {
		if s.EquipmentID == equipmentID && s.Active {
			return 0, apperrors.ErrConflict
		}
	}
	s := entities.ScheduledMaintenance{
		ID: r.store.id(), EquipmentID: equipmentID, ScheduledDate: scheduledDate, Active: true, CreatedAt: r.store.tick(),
	}
	r.store.schedules = append(r.store.schedules, s)
	return s.ID, nil
}

func (r *fakeScheduleRepo) FindOverdue(ctx context.Context, before time.Time) ([]entities.ScheduledMaintenance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.ScheduledMaintenance, 0)
	for _, s := range r.store.schedules {
		if !s.Active || !s.ScheduledDate.Before(before) || !r.store.equipments[s.EquipmentID].Active {
			continue
		}
		for _, h := range r.store.headers {
			if h.EquipmentID == s.EquipmentID && h.Active && h.StatusID == constants.MaintenanceStatusScheduledID {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) MarkOverdueNotified(ctx context.Context, scheduleID uint64, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.schedules {
		s := &r.store.schedules[i]
		if s.ID == scheduleID && s.Active && s.NotifiedAt == nil {
			s.NotifiedAt = &at
			return true, nil
		}
	}
	return false, nil
}

// ---------- users ----------

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint64) (*entities.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, tx pgx.Tx, u entities.User) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u.ID = r.store.id()
	u.Active = true
	r.store.users[u.ID] = u
	return u.ID, nil
}

// ---------- lock / events ----------

type fakeLocker struct {
	err    error
	locked map[uint64]int
}

func (l *fakeLocker) Lock(ctx context.Context, equipmentID uint64) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.locked == nil {
		l.locked = map[uint64]int{}
	}
	l.locked[equipmentID]++
	return func() { l.locked[equipmentID]-- }, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}
