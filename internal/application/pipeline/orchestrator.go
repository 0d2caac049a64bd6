package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/storefront"
)

// orphanDeferDelay is the requeue delay for a child whose parent has not
// been processed yet
const orphanDeferDelay = 2 * time.Minute

// transitionPersistTimeout bounds the write recording a task's state
// transition. The write runs detached from the attempt's deadline: a task
// that blew its per-attempt timeout must still land in Retrying or Failed,
// not stay Running forever.
const transitionPersistTimeout = 10 * time.Second

// TaskPayload is the JSON body of a sync task. It carries everything needed
// to re-run the task from the local mirror: the item ids in scope and the
// raw attribute pairs captured at intake.
type TaskPayload struct {
	ParentErpItemID string                     `json:"parent_erp_item_id,omitempty"`
	ErpItemIDs      []string                   `json:"erp_item_ids,omitempty"`
	Pairs           map[string][]AttributePair `json:"pairs,omitempty"`
	Reason          string                     `json:"reason,omitempty"`
}

// Orchestrator executes sync tasks end to end: load local state, resolve
// attributes, re-check remote existence, compose and dispatch. Every attempt
// re-checks remote existence before creating, so re-running a task after an
// ambiguous failure is safe.
type Orchestrator struct {
	taskRepo     storefront.TaskRepository
	itemRepo     catalog.ItemRepository
	settingsRepo storefront.SettingsRepository
	gateway      storefront.Gateway
	resolver     *AttributeResolver
	composer     *VariantComposer
	dispatcher   *Dispatcher
	policies     map[storefront.TaskLane]storefront.TaskPolicy
	logger       *zap.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	taskRepo storefront.TaskRepository,
	itemRepo catalog.ItemRepository,
	settingsRepo storefront.SettingsRepository,
	gateway storefront.Gateway,
	resolver *AttributeResolver,
	composer *VariantComposer,
	dispatcher *Dispatcher,
	policies map[storefront.TaskLane]storefront.TaskPolicy,
	logger *zap.Logger,
) *Orchestrator {
	if policies == nil {
		policies = storefront.DefaultPolicies()
	}
	return &Orchestrator{
		taskRepo:     taskRepo,
		itemRepo:     itemRepo,
		settingsRepo: settingsRepo,
		gateway:      gateway,
		resolver:     resolver,
		composer:     composer,
		dispatcher:   dispatcher,
		policies:     policies,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// Task creation
// ---------------------------------------------------------------------------

// EnqueueFromChangeSet fans a committed change set out into lane tasks:
// simple creates on the insert lane, simple updates on the update lane, each
// parent family as one variable-product task, and one attribute-sync task
// when the batch carried attribute pairs.
func (o *Orchestrator) EnqueueFromChangeSet(ctx context.Context, set *ChangeSet) ([]*storefront.SyncTask, error) {
	var simpleCreates, simpleUpdates []string
	families := make(map[string][]string) // parent erp id -> child erp ids
	familyOrder := make([]string, 0)
	pairs := make(map[string][]AttributePair)

	for _, classified := range set.Records() {
		record := classified.Record
		erpItemID := record.ErpItemID
		if strings.TrimSpace(erpItemID) == "" {
			erpItemID = record.Barcode
		}
		if len(record.Attributes) > 0 {
			pairs[erpItemID] = record.Attributes
		}

		switch classified.Role {
		case catalog.RoleSimple:
			if classified.Op == OpInsert {
				simpleCreates = append(simpleCreates, erpItemID)
			} else {
				simpleUpdates = append(simpleUpdates, erpItemID)
			}
		case catalog.RoleParent:
			if _, ok := families[erpItemID]; !ok {
				familyOrder = append(familyOrder, erpItemID)
				families[erpItemID] = nil
			}
		case catalog.RoleChild:
			parentID := strings.TrimSpace(record.ParentErpItemID)
			if _, ok := families[parentID]; !ok {
				familyOrder = append(familyOrder, parentID)
				families[parentID] = nil
			}
			families[parentID] = append(families[parentID], erpItemID)
		}
	}

	var tasks []*storefront.SyncTask

	if len(simpleCreates) > 0 {
		task, err := o.newTask(set.TenantID, storefront.LaneInsert, TaskPayload{ErpItemIDs: simpleCreates})
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if len(simpleUpdates) > 0 {
		task, err := o.newTask(set.TenantID, storefront.LaneUpdate, TaskPayload{ErpItemIDs: simpleUpdates})
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	for _, parentID := range familyOrder {
		payload := TaskPayload{
			ParentErpItemID: parentID,
			ErpItemIDs:      families[parentID],
			Pairs:           familyPairs(pairs, parentID, families[parentID]),
		}
		task, err := o.newTask(set.TenantID, storefront.LaneVariable, payload)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if len(pairs) > 0 {
		task, err := o.newTask(set.TenantID, storefront.LaneAttribute, TaskPayload{Pairs: pairs})
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, nil
	}
	if err := o.taskRepo.Save(ctx, tasks...); err != nil {
		return nil, err
	}

	o.logger.Info("enqueued sync tasks",
		zap.String("tenant_id", set.TenantID.String()),
		zap.Int("tasks", len(tasks)))
	return tasks, nil
}

func (o *Orchestrator) newTask(tenantID uuid.UUID, lane storefront.TaskLane, payload TaskPayload) (*storefront.SyncTask, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return storefront.NewSyncTask(tenantID, lane, body, o.policies[lane])
}

func familyPairs(all map[string][]AttributePair, parentID string, childIDs []string) map[string][]AttributePair {
	out := make(map[string][]AttributePair)
	if pairs, ok := all[parentID]; ok {
		out[parentID] = pairs
	}
	for _, id := range childIDs {
		if pairs, ok := all[id]; ok {
			out[id] = pairs
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ---------------------------------------------------------------------------
// Task execution
// ---------------------------------------------------------------------------

// Execute runs one claimed (Running) task to completion and persists its
// final state transition. The returned error reports persistence problems
// only; task-level failures are absorbed into the task's state.
func (o *Orchestrator) Execute(ctx context.Context, task *storefront.SyncTask) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return o.finish(ctx, task, fmt.Errorf("malformed task payload: %w", err), true)
	}

	settings, err := o.settingsRepo.FindByTenant(ctx, task.TenantID)
	if err != nil {
		return o.finish(ctx, task, err, false)
	}
	if err := settings.Validate(); err != nil {
		return o.finish(ctx, task, err, true)
	}

	configured, err := o.gateway.IsConfigured(ctx, task.TenantID)
	if err != nil {
		return o.finish(ctx, task, err, false)
	}
	if !configured {
		return o.finish(ctx, task, shared.ErrMissingCredentials, true)
	}

	switch task.Lane {
	case storefront.LaneInsert:
		err = o.runProductLane(ctx, task, payload, settings, true)
	case storefront.LaneUpdate:
		err = o.runProductLane(ctx, task, payload, settings, false)
	case storefront.LaneVariable:
		var orphan bool
		orphan, err = o.runVariableLane(ctx, task, payload, settings)
		if orphan {
			return o.deferOrphan(ctx, task, payload)
		}
	case storefront.LaneAttribute:
		err = o.runAttributeLane(ctx, task, payload, settings)
	default:
		return o.finish(ctx, task, storefront.ErrTaskInvalidLane, true)
	}

	if err != nil {
		return o.finish(ctx, task, err, !storefront.IsTransient(err))
	}
	return o.finish(ctx, task, nil, false)
}

// runProductLane syncs simple products: creates on the insert lane, updates
// on the update lane. An item that turns out to exist remotely is updated
// rather than recreated, and vice versa, so stale routing self-heals.
func (o *Orchestrator) runProductLane(ctx context.Context, task *storefront.SyncTask, payload TaskPayload, settings *storefront.TenantSettings, insert bool) error {
	if insert && !settings.SyncNewProducts {
		return shared.ErrSyncDisabled
	}

	items, err := o.loadItems(ctx, task.TenantID, payload.ErpItemIDs)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	existing, err := o.remoteExistence(ctx, task.TenantID, items)
	if err != nil {
		return err
	}

	in := ComposeInput{
		Settings: settings,
		Pairs:    payload.Pairs,
		Existing: existing,
	}

	payloads := make([]storefront.ProductPayload, 0, len(items))
	for _, item := range items {
		p, err := o.composer.ComposeSimple(item, in)
		if err != nil {
			return err
		}
		payloads = append(payloads, *p)
	}

	result := o.dispatcher.DispatchProducts(ctx, task.TenantID, payloads)
	o.logResult(task, result)
	return result.FirstError()
}

// runVariableLane syncs one parent family. Returns orphan=true when the
// parent is absent locally, signalling a deferral instead of a failure.
func (o *Orchestrator) runVariableLane(ctx context.Context, task *storefront.SyncTask, payload TaskPayload, settings *storefront.TenantSettings) (bool, error) {
	parent, err := o.itemRepo.FindByErpItemID(ctx, task.TenantID, payload.ParentErpItemID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}
	if parent == nil {
		return true, nil
	}

	children, err := o.itemRepo.FindChildren(ctx, task.TenantID, parent.ErpItemID)
	if err != nil {
		return false, err
	}
	childPtrs := make([]*catalog.Item, len(children))
	for i := range children {
		childPtrs[i] = &children[i]
	}

	resolved, err := o.resolver.Resolve(ctx, task.TenantID, childPtrs, payload.Pairs, settings.VariationAxisVocabulary)
	if err != nil {
		return false, err
	}

	if err := o.ensureRemoteAttributes(ctx, task.TenantID, resolved); err != nil {
		return false, err
	}

	all := append([]*catalog.Item{parent}, childPtrs...)
	existing, err := o.remoteExistence(ctx, task.TenantID, all)
	if err != nil {
		return false, err
	}

	categories, err := o.remoteCategories(ctx, task.TenantID)
	if err != nil {
		return false, err
	}

	in := ComposeInput{
		Settings:   settings,
		Resolved:   resolved,
		Pairs:      payload.Pairs,
		Existing:   existing,
		Categories: categories,
	}

	batch, err := o.composer.ComposeVariable(parent, childPtrs, in)
	if err != nil {
		return false, err
	}
	if batch.IsEmpty() {
		o.logger.Info("variable product already fully applied remotely",
			zap.String("tenant_id", task.TenantID.String()),
			zap.String("parent_erp_item_id", parent.ErpItemID))
		return false, nil
	}

	result := o.dispatcher.DispatchComposed(ctx, task.TenantID, batch)
	o.logResult(task, result)
	return false, result.FirstError()
}

// runAttributeLane pushes locally resolved attributes and terms to the
// storefront, creating only what the remote tree is missing
func (o *Orchestrator) runAttributeLane(ctx context.Context, task *storefront.SyncTask, payload TaskPayload, settings *storefront.TenantSettings) error {
	resolved := make(AttributeMap)
	for _, pairs := range payload.Pairs {
		for _, pair := range pairs {
			attr, err := o.resolver.resolveAttribute(ctx, task.TenantID, strings.TrimSpace(pair.Name), settings.VariationAxisVocabulary)
			if err != nil {
				return err
			}
			if !attr.IsActive {
				continue
			}
			key := strings.ToLower(attr.Name)
			entry, ok := resolved[key]
			if !ok {
				entry = &ResolvedAttribute{Attribute: attr, Properties: make(map[string]*catalog.Property)}
				resolved[key] = entry
			}
			valueKey := strings.ToLower(strings.TrimSpace(pair.Value))
			if _, ok := entry.Properties[valueKey]; ok {
				continue
			}
			prop, err := o.resolver.resolveProperty(ctx, attr, strings.TrimSpace(pair.Value))
			if err != nil {
				return err
			}
			entry.Values = append(entry.Values, prop.Value)
			entry.Properties[valueKey] = prop
		}
	}

	return o.ensureRemoteAttributes(ctx, task.TenantID, resolved)
}

// ---------------------------------------------------------------------------
// Remote reconciliation helpers
// ---------------------------------------------------------------------------

// remoteExistence builds the unique id -> remote entry map. Unique-id
// matches are authoritative; SKU matches fill in only for items not yet
// carrying the metafield remotely.
func (o *Orchestrator) remoteExistence(ctx context.Context, tenantID uuid.UUID, items []*catalog.Item) (map[string]storefront.RemoteEntry, error) {
	uniqueIDs := make([]string, 0, len(items))
	for _, item := range items {
		uniqueIDs = append(uniqueIDs, item.ErpItemID)
	}

	existing := make(map[string]storefront.RemoteEntry, len(items))
	entries, err := o.gateway.ListByUniqueIDs(ctx, tenantID, uniqueIDs)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.UniqueID != "" {
			existing[entry.UniqueID] = entry
		}
	}

	var missingSKUs []string
	skuToErpID := make(map[string]string)
	for _, item := range items {
		if _, ok := existing[item.ErpItemID]; !ok {
			missingSKUs = append(missingSKUs, item.Barcode)
			skuToErpID[strings.ToLower(item.Barcode)] = item.ErpItemID
		}
	}
	if len(missingSKUs) == 0 {
		return existing, nil
	}

	entries, err = o.gateway.ListBySKUs(ctx, tenantID, missingSKUs)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if erpItemID, ok := skuToErpID[strings.ToLower(entry.SKU)]; ok {
			if _, taken := existing[erpItemID]; !taken {
				existing[erpItemID] = entry
			}
		}
	}
	return existing, nil
}

// ensureRemoteAttributes creates the variation-axis attributes and terms the
// storefront is missing. The tree is fetched first so re-runs create nothing.
func (o *Orchestrator) ensureRemoteAttributes(ctx context.Context, tenantID uuid.UUID, resolved AttributeMap) error {
	needed := make([]*ResolvedAttribute, 0, len(resolved))
	for _, entry := range resolved {
		if entry.Attribute.IsVariation {
			needed = append(needed, entry)
		}
	}
	if len(needed) == 0 {
		return nil
	}

	tree, err := o.gateway.FetchAttributeTree(ctx, tenantID)
	if err != nil {
		return err
	}
	remote := make(map[string]storefront.RemoteAttribute, len(tree))
	for _, attr := range tree {
		remote[strings.ToLower(attr.Slug)] = attr
	}

	for _, entry := range needed {
		attr := entry.Attribute
		remoteAttr, ok := remote[strings.ToLower(attr.Slug)]
		if !ok {
			id, err := o.gateway.CreateAttribute(ctx, tenantID, attr.Name, attr.Slug)
			if err != nil {
				return err
			}
			remoteAttr = storefront.RemoteAttribute{ID: id, Name: attr.Name, Slug: attr.Slug}
			o.logger.Info("created remote attribute",
				zap.String("tenant_id", tenantID.String()),
				zap.String("attribute", attr.Name),
				zap.Int64("remote_id", id))
		}

		terms := make(map[string]bool, len(remoteAttr.Terms))
		for _, term := range remoteAttr.Terms {
			terms[strings.ToLower(term.Slug)] = true
		}
		for _, value := range entry.Values {
			slug := catalog.Slugify(value)
			if terms[strings.ToLower(slug)] {
				continue
			}
			if _, err := o.gateway.CreateTerm(ctx, tenantID, remoteAttr.ID, value, slug); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) remoteCategories(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	categories, err := o.gateway.ListCategories(ctx, tenantID)
	if err != nil {
		// category mapping is best-effort; the default category covers misses
		o.logger.Warn("category listing failed, using defaults",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, nil
	}
	index := make(map[string]int64, len(categories))
	for _, category := range categories {
		index[strings.ToLower(category.Name)] = category.ID
	}
	return index, nil
}

// logResult emits the per-batch outcome summary keyed by tenant and task
func (o *Orchestrator) logResult(task *storefront.SyncTask, result *storefront.BatchResult) {
	o.logger.Info("dispatch result",
		zap.String("task_id", task.ID.String()),
		zap.String("tenant_id", task.TenantID.String()),
		zap.String("lane", string(task.Lane)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
}

func (o *Orchestrator) loadItems(ctx context.Context, tenantID uuid.UUID, erpItemIDs []string) ([]*catalog.Item, error) {
	items, err := o.itemRepo.FindByErpItemIDs(ctx, tenantID, erpItemIDs)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*catalog.Item, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	return ptrs, nil
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// finish applies the terminal transition for one attempt and persists it.
// Structural failures skip the retry budget; on final failure the task input
// is preserved and logged with full context for operator inspection.
func (o *Orchestrator) finish(ctx context.Context, task *storefront.SyncTask, taskErr error, structural bool) error {
	switch {
	case taskErr == nil:
		if err := task.Succeed(); err != nil {
			return err
		}
	case structural:
		if err := task.FailStructural(taskErr.Error()); err != nil {
			return err
		}
	default:
		if err := task.Fail(taskErr.Error(), o.policies[task.Lane]); err != nil {
			return err
		}
	}

	if task.IsDead() {
		o.logger.Error("sync task dead-lettered",
			zap.String("task_id", task.ID.String()),
			zap.String("tenant_id", task.TenantID.String()),
			zap.String("lane", string(task.Lane)),
			zap.Int("attempts", task.Attempts),
			zap.String("last_error", task.LastError),
			zap.ByteString("payload", task.Payload))
	} else if taskErr != nil {
		o.logger.Warn("sync task attempt failed, retrying",
			zap.String("task_id", task.ID.String()),
			zap.String("tenant_id", task.TenantID.String()),
			zap.String("lane", string(task.Lane)),
			zap.Int("attempts", task.Attempts),
			zap.Error(taskErr))
	}

	return o.persistTransition(ctx, task)
}

// persistTransition writes the task's new state on a context that survives
// the attempt's own cancellation or deadline.
func (o *Orchestrator) persistTransition(ctx context.Context, task *storefront.SyncTask) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transitionPersistTimeout)
	defer cancel()
	return o.taskRepo.Update(persistCtx, task)
}

// deferOrphan requeues a family task whose parent has not arrived locally.
// Past the deferral budget it escalates to a standing warning and dead-letters
// the task with its input preserved.
func (o *Orchestrator) deferOrphan(ctx context.Context, task *storefront.SyncTask, payload TaskPayload) error {
	if task.Defer(orphanDeferDelay) {
		o.logger.Info("parent not yet local, deferring family task",
			zap.String("task_id", task.ID.String()),
			zap.String("tenant_id", task.TenantID.String()),
			zap.String("parent_erp_item_id", payload.ParentErpItemID),
			zap.Int("deferrals", task.Deferrals))
		return o.persistTransition(ctx, task)
	}

	o.logger.Warn("orphan variants persisted past deferral budget",
		zap.String("task_id", task.ID.String()),
		zap.String("tenant_id", task.TenantID.String()),
		zap.String("parent_erp_item_id", payload.ParentErpItemID),
		zap.Strings("child_erp_item_ids", payload.ErpItemIDs))
	return o.finish(ctx, task, fmt.Errorf("%w: %s", storefront.ErrOrphanVariant, payload.ParentErpItemID), true)
}

// ---------------------------------------------------------------------------
// Dead letter operations
// ---------------------------------------------------------------------------

// ListDead returns dead-letter tasks for operator inspection
func (o *Orchestrator) ListDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*storefront.SyncTask, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return o.taskRepo.FindDead(ctx, tenantID, page, pageSize)
}

// RequeueDead resets a dead-letter task for reprocessing
func (o *Orchestrator) RequeueDead(ctx context.Context, tenantID, taskID uuid.UUID) (*storefront.SyncTask, error) {
	task, err := o.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	if err := task.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := o.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	o.logger.Info("requeued dead-letter task",
		zap.String("task_id", task.ID.String()),
		zap.String("tenant_id", tenantID.String()))
	return task, nil
}

// QueueStats returns task counts by status
func (o *Orchestrator) QueueStats(ctx context.Context) (map[storefront.TaskStatus]int64, error) {
	return o.taskRepo.CountByStatus(ctx)
}
