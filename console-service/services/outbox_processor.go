package services

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"railzway-console/shared/clients"
	"railzway-console/shared/database/models"
)

const maxOutboxAttempts = 5

// OutboxProcessor drains pending deploy events and drives the scheduler.
// Events are written in the same transaction as the org and instance rows,
// so a crash between commit and deployment is retried from here.
type OutboxProcessor struct {
	db          *gorm.DB
	provisioner *clients.ProvisionerClient
	publisher   *StatusPublisher
	interval    time.Duration
}

// NewOutboxProcessor creates an outbox processor
func NewOutboxProcessor(db *gorm.DB, provisioner *clients.ProvisionerClient, publisher *StatusPublisher) *OutboxProcessor {
	return &OutboxProcessor{
		db:          db,
		provisioner: provisioner,
		publisher:   publisher,
		interval:    2 * time.Second,
	}
}

// Run processes events until the context is cancelled
func (op *OutboxProcessor) Run(ctx context.Context) {
	log.Printf("📦 Outbox processor started (interval: %v)", op.interval)

	ticker := time.NewTicker(op.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("📦 Outbox processor stopped")
			return
		case <-ticker.C:
			op.tick(ctx)
		}
	}
}

func (op *OutboxProcessor) tick(ctx context.Context) {
	event, ok := op.claimNext(ctx)
	if !ok {
		return
	}

	if err := op.process(ctx, event); err != nil {
		op.recordFailure(ctx, event, err)
		return
	}

	now := time.Now().UTC()
	event.Status = models.OutboxDone
	event.ProcessedAt = &now
	event.UpdatedAt = now
	if err := op.db.WithContext(ctx).Save(event).Error; err != nil {
		log.Printf("❌ Failed to mark outbox event %d done: %v", event.ID, err)
	}
}

// claimNext atomically moves the oldest pending event to processing
func (op *OutboxProcessor) claimNext(ctx context.Context) (*models.OutboxEvent, bool) {
	var event models.OutboxEvent

	err := op.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ?", models.OutboxPending).
			Order("created_at asc").
			First(&event).Error; err != nil {
			return err
		}

		event.Status = models.OutboxProcessing
		event.Attempts++
		event.UpdatedAt = time.Now().UTC()
		return tx.Save(&event).Error
	})
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("❌ Outbox claim failed: %v", err)
		}
		return nil, false
	}

	return &event, true
}

func (op *OutboxProcessor) process(ctx context.Context, event *models.OutboxEvent) error {
	switch event.EventType {
	case models.EventInstanceDeploy:
		return op.deployInstance(ctx, event.AggregateID)
	default:
		log.Printf("⚠️ Unknown outbox event type %q (id %d), skipping", event.EventType, event.ID)
		return nil
	}
}

func (op *OutboxProcessor) deployInstance(ctx context.Context, orgID int64) error {
	var inst models.Instance
	if err := op.db.WithContext(ctx).Where("org_id = ?", orgID).First(&inst).Error; err != nil {
		return err
	}

	if err := op.provisioner.DeployInstance(ctx, orgID, inst.DesiredVersion, inst.Tier); err != nil {
		return err
	}

	inst.MarkProvisioning()
	if err := op.db.WithContext(ctx).Save(&inst).Error; err != nil {
		return err
	}

	op.publisher.PublishSnapshot(orgID, &inst)
	log.Printf("📦 Deploy triggered for org %d (version %s)", orgID, inst.DesiredVersion)
	return nil
}

func (op *OutboxProcessor) recordFailure(ctx context.Context, event *models.OutboxEvent, cause error) {
	log.Printf("❌ Outbox event %d failed (attempt %d): %v", event.ID, event.Attempts, cause)

	event.LastError = cause.Error()
	event.UpdatedAt = time.Now().UTC()
	if event.Attempts >= maxOutboxAttempts {
		event.Status = models.OutboxFailed

		// Surface the failure on the instance so the console shows it.
		var inst models.Instance
		if err := op.db.WithContext(ctx).Where("org_id = ?", event.AggregateID).First(&inst).Error; err == nil {
			inst.MarkProvisionFailed(cause.Error())
			if err := op.db.WithContext(ctx).Save(&inst).Error; err == nil {
				op.publisher.PublishSnapshot(inst.OrgID, &inst)
			}
		}
	} else {
		event.Status = models.OutboxPending
	}

	if err := op.db.WithContext(ctx).Save(event).Error; err != nil {
		log.Printf("❌ Failed to persist outbox failure for event %d: %v", event.ID, err)
	}
}
