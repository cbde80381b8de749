package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/notify"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TypePaymentReminder = "ledger:payment:reminder"
	TypeStatementExport = "ledger:statement:export"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks. It holds the dependencies
// the task handlers need.
type TaskProcessor struct {
	cfg              *config.Config
	notifySender     notify.Sender
	statementStorage storage.IStatementStorage
	ledgerService    services.ILedgerService
	customerService  services.ICustomerService
	adminService     services.IAdminService
}

func NewTaskProcessor(
	cfg *config.Config,
	notifySender notify.Sender,
	statementStorage storage.IStatementStorage,
	ledgerService services.ILedgerService,
	customerService services.ICustomerService,
	adminService services.IAdminService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:              cfg,
		notifySender:     notifySender,
		statementStorage: statementStorage,
		ledgerService:    ledgerService,
		customerService:  customerService,
		adminService:     adminService,
	}
}

// SetupServer configures and returns an Asynq server instance, or nil when
// not running as a background worker.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) *asynq.Server {
	if !isBgWorker {
		fmt.Println("Running in API mode, no task server started.")
		return nil
	}

	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePaymentReminder, processor.HandlePaymentReminderTask)
	mux.HandleFunc(TypeStatementExport, processor.HandleStatementExportTask)
	fmt.Println("Registered background task handlers (reminders & statement export).")

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}
	return srv
}

// SetupScheduler registers the periodic payment reminder sweep (daily at
// 09:00) and starts the scheduler. Returns the scheduler for shutdown.
func SetupScheduler(rdb *redis.Client) *asynq.Scheduler {
	schedulerOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	scheduler := asynq.NewScheduler(schedulerOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	task := asynq.NewTask(TypePaymentReminder, nil, asynq.Queue("low"))
	if _, err := scheduler.Register("0 9 * * *", task); err != nil {
		log.Fatalf("Could not register payment reminder schedule: %v", err)
	}

	if err := scheduler.Start(); err != nil {
		log.Fatalf("Could not start Asynq scheduler: %v", err)
	}
	return scheduler
}

// --- Task Handlers ---

// HandlePaymentReminderTask sweeps every active vendor's customers and sends
// a reminder for outstanding previous-month balances. The sweep waits a few
// days into the new month (grace period) so customers who pay at the start
// of the month are not nagged.
func (p *TaskProcessor) HandlePaymentReminderTask(ctx context.Context, t *asynq.Task) error {
	now := time.Now().UTC()
	if now.Day() < p.cfg.ReminderGraceDays {
		log.Printf("Payment reminder sweep skipped: within %d-day grace period", p.cfg.ReminderGraceDays)
		return nil
	}

	previousMonth := ledger.MonthOf(now).Previous()

	vendors, err := p.adminService.ListVendors(ctx)
	if err != nil {
		return fmt.Errorf("failed to list vendors for reminder sweep: %w", err)
	}

	var sent, failed int
	for _, vendor := range vendors {
		if !vendor.IsActive {
			continue
		}
		customers, err := p.customerService.ListByVendor(ctx, vendor.ID)
		if err != nil {
			log.Printf("Reminder sweep: failed to list customers for vendor %s: %v", vendor.ID.Hex(), err)
			failed++
			continue
		}
		for _, customer := range customers {
			result, err := p.ledgerService.Aggregate(ctx, vendor.ID, &customer.ID, previousMonth)
			if err != nil {
				log.Printf("Reminder sweep: failed to aggregate %s/%s: %v", vendor.ID.Hex(), customer.ID.Hex(), err)
				failed++
				continue
			}
			if result.Summary.Remaining <= 0 {
				continue
			}

			msg := notify.Message{
				To:      customer.WhatsApp,
				Subject: fmt.Sprintf("Payment reminder for %s", previousMonth.String()),
				Body: fmt.Sprintf("Hello %s, your milk bill for %s with %s has an outstanding balance of %.2f. Please arrange payment.",
					customer.Name, previousMonth.String(), vendor.Name, result.Summary.Remaining),
			}
			if err := p.notifySender.Send(ctx, msg); err != nil {
				log.Printf("Reminder sweep: failed to notify %s: %v", customer.WhatsApp, err)
				failed++
				continue
			}
			sent++
		}
	}

	log.Printf("Payment reminder sweep done for %s: %d sent, %d failed", previousMonth.String(), sent, failed)
	if failed > 0 && sent == 0 {
		return fmt.Errorf("reminder sweep failed for all %d candidates", failed)
	}
	return nil
}

// StatementExportPayload identifies the statement to export.
type StatementExportPayload struct {
	VendorID   string `json:"vendor_id"`
	CustomerID string `json:"customer_id"`
	Month      string `json:"month"` // YYYY-MM
}

// NewStatementExportTask builds the asynq task for a statement export.
func NewStatementExportTask(vendorID, customerID primitive.ObjectID, month string) (*asynq.Task, error) {
	payload, err := json.Marshal(StatementExportPayload{
		VendorID:   vendorID.Hex(),
		CustomerID: customerID.Hex(),
		Month:      month,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal statement export payload: %w", err)
	}
	return asynq.NewTask(TypeStatementExport, payload), nil
}

// HandleStatementExportTask renders a customer's month ledger to CSV and
// archives it. Malformed payloads are dropped, not retried.
func (p *TaskProcessor) HandleStatementExportTask(ctx context.Context, t *asynq.Task) error {
	var payload StatementExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal statement export payload: %v: %w", err, asynq.SkipRetry)
	}

	vendorID, err := primitive.ObjectIDFromHex(payload.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID in payload: %w", asynq.SkipRetry)
	}
	customerID, err := primitive.ObjectIDFromHex(payload.CustomerID)
	if err != nil {
		return fmt.Errorf("invalid customer ID in payload: %w", asynq.SkipRetry)
	}
	month, err := ledger.ParseMonth(payload.Month)
	if err != nil {
		return fmt.Errorf("invalid month in payload: %v: %w", err, asynq.SkipRetry)
	}

	customer, err := p.customerService.FindOwned(ctx, vendorID, customerID)
	if err != nil {
		return fmt.Errorf("failed to load customer for statement export: %w", err)
	}

	result, err := p.ledgerService.Aggregate(ctx, vendorID, &customerID, month)
	if err != nil {
		return fmt.Errorf("failed to aggregate ledger for statement export: %w", err)
	}

	csvData, err := ledger.BuildStatementCSV(customer.Name, month, result.Days, result.Summary)
	if err != nil {
		return fmt.Errorf("failed to render statement CSV: %w", err)
	}

	key := storage.StatementKey(payload.VendorID, payload.CustomerID, payload.Month)
	if err := p.statementStorage.UploadStatement(ctx, key, csvData); err != nil {
		return err // retryable
	}

	log.Printf("Exported statement %s (%d bytes)", key, len(csvData))
	return nil
}
