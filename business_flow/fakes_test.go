package businessflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
)

// In-memory repository fakes. Flows run against these with a nil *gorm.DB,
// which makes WithTransaction call the body directly.

type fakeCampaignRepo struct {
	mu        sync.Mutex
	nextID    uint
	campaigns map[uint]*models.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{nextID: 1, campaigns: make(map[uint]*models.Campaign)}
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.sorted() {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	return paginate(out, limit, offset), nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign.ID == 0 {
		campaign.ID = r.nextID
		r.nextID++
	}
	if campaign.UUID == uuid.Nil {
		campaign.UUID = uuid.New()
	}
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = utils.UTCNow()
	}
	clone := *campaign
	r.campaigns[campaign.ID] = &clone
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, campaigns []*models.Campaign) error {
	for _, c := range campaigns {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	items, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), nil
}

func (r *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, rawUUID string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.campaigns {
		if c.UUID.String() == rawUUID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := campaign
	r.campaigns[campaign.ID] = &clone
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) UpdateNextRunAt(ctx context.Context, id uint, nextRunAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.NextRunAt = nextRunAt
	}
	return nil
}

func (r *fakeCampaignRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
	return nil
}

func (r *fakeCampaignRepo) ListDue(ctx context.Context, before time.Time) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.sorted() {
		if c.Status != models.CampaignStatusActive || c.NextRunAt == nil {
			continue
		}
		if c.NextRunAt.After(before) {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeCampaignRepo) CountReferencingTemplate(ctx context.Context, templateID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, c := range r.campaigns {
		for _, step := range c.Config.Steps {
			if step.TemplateID != nil && *step.TemplateID == templateID {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *fakeCampaignRepo) sorted() []*models.Campaign {
	out := make([]*models.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	nextID    uint
	customers map[uint]*models.Customer

	// byIDErr makes ByID fail for one customer, simulating a mid-pass
	// lookup failure.
	byIDErr map[uint]error
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{nextID: 1, customers: make(map[uint]*models.Customer), byIDErr: make(map[uint]error)}
}

func (r *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.byIDErr[id]; ok {
		return nil, err
	}
	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCustomerRepo) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	return nil, nil
}

func (r *fakeCustomerRepo) Save(ctx context.Context, customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if customer.ID == 0 {
		customer.ID = r.nextID
		r.nextID++
	}
	if customer.UUID == uuid.Nil {
		customer.UUID = uuid.New()
	}
	clone := *customer
	r.customers[customer.ID] = &clone
	return nil
}

func (r *fakeCustomerRepo) SaveBatch(ctx context.Context, customers []*models.Customer) error {
	for _, c := range customers {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	return int64(len(r.customers)), nil
}

func (r *fakeCustomerRepo) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	return len(r.customers) > 0, nil
}

func (r *fakeCustomerRepo) ByUUID(ctx context.Context, rawUUID string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.UUID.String() == rawUUID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Email != nil && *c.Email == email {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) BySegment(ctx context.Context, segment models.SegmentConfig, limit, offset int) ([]*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := utils.UTCNow()
	ids := make([]uint, 0, len(r.customers))
	for id := range r.customers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*models.Customer
	for _, id := range ids {
		c := r.customers[id]
		if !segment.Matches(c, now) {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	return paginate(out, limit, offset), nil
}

func (r *fakeCustomerRepo) CountBySegment(ctx context.Context, segment models.SegmentConfig) (int64, error) {
	matches, err := r.BySegment(ctx, segment, 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

type fakeRecipientRepo struct {
	mu         sync.Mutex
	nextID     uint
	recipients map[uint]*models.CampaignRecipient
}

func newFakeRecipientRepo() *fakeRecipientRepo {
	return &fakeRecipientRepo{nextID: 1, recipients: make(map[uint]*models.CampaignRecipient)}
}

func (r *fakeRecipientRepo) ByID(ctx context.Context, id uint) (*models.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipients[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (r *fakeRecipientRepo) ByFilter(ctx context.Context, filter models.CampaignRecipientFilter, orderBy string, limit, offset int) ([]*models.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CampaignRecipient
	for _, rec := range r.sorted() {
		if filter.CampaignID != nil && rec.CampaignID != *filter.CampaignID {
			continue
		}
		if filter.CustomerID != nil && rec.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		clone := *rec
		out = append(out, &clone)
	}
	return paginate(out, limit, offset), nil
}

func (r *fakeRecipientRepo) Save(ctx context.Context, recipient *models.CampaignRecipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if recipient.ID == 0 {
		recipient.ID = r.nextID
		r.nextID++
	}
	clone := *recipient
	r.recipients[recipient.ID] = &clone
	return nil
}

func (r *fakeRecipientRepo) SaveBatch(ctx context.Context, recipients []*models.CampaignRecipient) error {
	for _, rec := range recipients {
		if err := r.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRecipientRepo) Count(ctx context.Context, filter models.CampaignRecipientFilter) (int64, error) {
	items, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), nil
}

func (r *fakeRecipientRepo) Exists(ctx context.Context, filter models.CampaignRecipientFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeRecipientRepo) ByCampaignAndCustomer(ctx context.Context, campaignID, customerID uint) (*models.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID && rec.CustomerID == customerID {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeRecipientRepo) ListActiveByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error) {
	status := models.RecipientStatusActive
	return r.ByFilter(ctx, models.CampaignRecipientFilter{CampaignID: &campaignID, Status: &status}, "", 0, 0)
}

func (r *fakeRecipientRepo) Update(ctx context.Context, recipient models.CampaignRecipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := recipient
	r.recipients[recipient.ID] = &clone
	return nil
}

func (r *fakeRecipientRepo) CountByStatus(ctx context.Context, campaignID uint) (map[models.RecipientStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[models.RecipientStatus]int64)
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID {
			out[rec.Status]++
		}
	}
	return out, nil
}

func (r *fakeRecipientRepo) sorted() []*models.CampaignRecipient {
	out := make([]*models.CampaignRecipient, 0, len(r.recipients))
	for _, rec := range r.recipients {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeRunRepo struct {
	mu     sync.Mutex
	nextID uint
	runs   map[uint]*models.CampaignRun
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{nextID: 1, runs: make(map[uint]*models.CampaignRun)}
}

func (r *fakeRunRepo) ByID(ctx context.Context, id uint) (*models.CampaignRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	clone := *run
	return &clone, nil
}

func (r *fakeRunRepo) ByFilter(ctx context.Context, filter models.CampaignRunFilter, orderBy string, limit, offset int) ([]*models.CampaignRun, error) {
	return nil, nil
}

func (r *fakeRunRepo) Save(ctx context.Context, run *models.CampaignRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == 0 {
		run.ID = r.nextID
		r.nextID++
	}
	if run.UUID == uuid.Nil {
		run.UUID = uuid.New()
	}
	clone := *run
	r.runs[run.ID] = &clone
	return nil
}

func (r *fakeRunRepo) SaveBatch(ctx context.Context, runs []*models.CampaignRun) error {
	for _, run := range runs {
		if err := r.Save(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRunRepo) Count(ctx context.Context, filter models.CampaignRunFilter) (int64, error) {
	return int64(len(r.runs)), nil
}

func (r *fakeRunRepo) Exists(ctx context.Context, filter models.CampaignRunFilter) (bool, error) {
	return len(r.runs) > 0, nil
}

func (r *fakeRunRepo) Update(ctx context.Context, run models.CampaignRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := run
	r.runs[run.ID] = &clone
	return nil
}

func (r *fakeRunRepo) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CampaignRun
	for _, run := range r.runs {
		if run.CampaignID == campaignID {
			clone := *run
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return paginate(out, limit, offset), nil
}

func (r *fakeRunRepo) LatestByCampaign(ctx context.Context, campaignID uint) (*models.CampaignRun, error) {
	runs, err := r.ListByCampaign(ctx, campaignID, 1, 0)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   uint
	messages map[uint]*models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{nextID: 1, messages: make(map[uint]*models.Message)}
}

func (r *fakeMessageRepo) ByID(ctx context.Context, id uint) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMessageRepo) ByFilter(ctx context.Context, filter models.MessageFilter, orderBy string, limit, offset int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.sorted() {
		if filter.CampaignID != nil && m.CampaignID != *filter.CampaignID {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	return paginate(out, limit, offset), nil
}

func (r *fakeMessageRepo) Save(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == 0 {
		message.ID = r.nextID
		r.nextID++
	}
	if message.UUID == uuid.Nil {
		message.UUID = uuid.New()
	}
	if message.Status == "" {
		message.Status = models.MessageStatusPending
	}
	clone := *message
	r.messages[message.ID] = &clone
	return nil
}

func (r *fakeMessageRepo) SaveBatch(ctx context.Context, messages []*models.Message) error {
	for _, m := range messages {
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, filter models.MessageFilter) (int64, error) {
	items, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), nil
}

func (r *fakeMessageRepo) Exists(ctx context.Context, filter models.MessageFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeMessageRepo) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Status = models.MessageStatusSent
		m.SentAt = &sentAt
	}
	return nil
}

func (r *fakeMessageRepo) MarkFailed(ctx context.Context, id uint, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Status = models.MessageStatusFailed
		m.FailReason = &reason
	}
	return nil
}

func (r *fakeMessageRepo) ListByRecipient(ctx context.Context, recipientID uint) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.sorted() {
		if m.RecipientID == recipientID {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountByStatus(ctx context.Context, campaignID uint) (map[models.MessageStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[models.MessageStatus]int64)
	for _, m := range r.messages {
		if m.CampaignID == campaignID {
			out[m.Status]++
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) sorted() []*models.Message {
	out := make([]*models.Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	nextID    uint
	templates map[uint]*models.MessageTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{nextID: 1, templates: make(map[uint]*models.MessageTemplate)}
}

func (r *fakeTemplateRepo) ByID(ctx context.Context, id uint) (*models.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTemplateRepo) ByFilter(ctx context.Context, filter models.MessageTemplateFilter, orderBy string, limit, offset int) ([]*models.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.MessageTemplate
	for _, t := range r.templates {
		if t.IsDeleted() {
			continue
		}
		if filter.Channel != nil && t.Channel != *filter.Channel {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}

func (r *fakeTemplateRepo) Save(ctx context.Context, template *models.MessageTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if template.ID == 0 {
		template.ID = r.nextID
		r.nextID++
	}
	if template.UUID == uuid.Nil {
		template.UUID = uuid.New()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = utils.UTCNow()
	}
	clone := *template
	r.templates[template.ID] = &clone
	return nil
}

func (r *fakeTemplateRepo) SaveBatch(ctx context.Context, templates []*models.MessageTemplate) error {
	for _, t := range templates {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeTemplateRepo) Count(ctx context.Context, filter models.MessageTemplateFilter) (int64, error) {
	items, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), nil
}

func (r *fakeTemplateRepo) Exists(ctx context.Context, filter models.MessageTemplateFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeTemplateRepo) ByUUID(ctx context.Context, rawUUID string) (*models.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.templates {
		if t.UUID.String() == rawUUID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeTemplateRepo) ByName(ctx context.Context, name string) (*models.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.templates {
		if t.Name == name && !t.IsDeleted() {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, template models.MessageTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := template
	r.templates[template.ID] = &clone
	return nil
}

func (r *fakeTemplateRepo) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.templates[id]; ok {
		t.DeletedAt = &at
	}
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{nextID: 1, orders: make(map[uint]*models.Order)}
}

func (r *fakeOrderRepo) ByID(ctx context.Context, id uint) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	clone := *o
	return &clone, nil
}

func (r *fakeOrderRepo) ByFilter(ctx context.Context, filter models.OrderFilter, orderBy string, limit, offset int) ([]*models.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) Save(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == 0 {
		order.ID = r.nextID
		r.nextID++
	}
	if order.UUID == uuid.Nil {
		order.UUID = uuid.New()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPlaced
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) SaveBatch(ctx context.Context, orders []*models.Order) error {
	for _, o := range orders {
		if err := r.Save(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeOrderRepo) Count(ctx context.Context, filter models.OrderFilter) (int64, error) {
	return int64(len(r.orders)), nil
}

func (r *fakeOrderRepo) Exists(ctx context.Context, filter models.OrderFilter) (bool, error) {
	return len(r.orders) > 0, nil
}

func (r *fakeOrderRepo) HasOrderInWindow(ctx context.Context, customerID uint, after, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.CustomerID != customerID || o.Status == models.OrderStatusCancelled {
			continue
		}
		if o.PlacedAt.After(after) && !o.PlacedAt.After(until) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			clone := *o
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

type fakeStaffRepo struct {
	mu     sync.Mutex
	nextID uint
	staff  map[uint]*models.Staff
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{nextID: 1, staff: make(map[uint]*models.Staff)}
}

func (r *fakeStaffRepo) ByID(ctx context.Context, id uint) (*models.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.staff[id]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (r *fakeStaffRepo) ByFilter(ctx context.Context, filter models.StaffFilter, orderBy string, limit, offset int) ([]*models.Staff, error) {
	return nil, nil
}

func (r *fakeStaffRepo) Save(ctx context.Context, staff *models.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if staff.ID == 0 {
		staff.ID = r.nextID
		r.nextID++
	}
	if staff.UUID == uuid.Nil {
		staff.UUID = uuid.New()
	}
	clone := *staff
	r.staff[staff.ID] = &clone
	return nil
}

func (r *fakeStaffRepo) SaveBatch(ctx context.Context, staff []*models.Staff) error {
	for _, s := range staff {
		if err := r.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeStaffRepo) Count(ctx context.Context, filter models.StaffFilter) (int64, error) {
	return int64(len(r.staff)), nil
}

func (r *fakeStaffRepo) Exists(ctx context.Context, filter models.StaffFilter) (bool, error) {
	return len(r.staff) > 0, nil
}

func (r *fakeStaffRepo) ByEmail(ctx context.Context, email string) (*models.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.staff {
		if s.Email == email {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeStaffRepo) UpdateLastLogin(ctx context.Context, staffID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.staff[staffID]; ok {
		s.LastLoginAt = &at
	}
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	nextID  uint
	entries []*models.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{nextID: 1}
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			clone := *e
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == 0 {
		entry.ID = r.nextID
		r.nextID++
	}
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, entries []*models.AuditLog) error {
	for _, e := range entries {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	return int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	return len(r.entries) > 0, nil
}

func (r *fakeAuditRepo) ListByStaff(ctx context.Context, staffID uint, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.IsFailed() {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
