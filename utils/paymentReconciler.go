package utils

import (
	"log"
	"time"

	"lms/config"
	"lms/database"
	"lms/gateway"
	orderModels "lms/models/order"
	orderService "lms/services/order"

	"github.com/robfig/cron/v3"
)

// InitializePaymentReconciler starts the scheduler that settles online
// payments the customer never came back from. Payments can get stuck pending
// when the gateway redirect is abandoned; the gateway still knows whether the
// money moved.
func InitializePaymentReconciler() *cron.Cron {
	log.Println("[RECONCILER] Initializing payment reconciler...")

	c := cron.New()

	if _, err := c.AddFunc(config.AppConfig.ReconcileSpec, ReconcilePendingPayments); err != nil {
		log.Printf("[RECONCILER] Invalid schedule %q: %v", config.AppConfig.ReconcileSpec, err)
		return c
	}

	c.Start()
	log.Printf("[RECONCILER] Payment reconciler started with schedule %q", config.AppConfig.ReconcileSpec)
	return c
}

// ReconcilePendingPayments re-verifies stale pending online payments against
// the gateway and confirms or fails them.
func ReconcilePendingPayments() {
	db := database.Database.Db
	cutoff := time.Now().Add(-30 * time.Minute)

	var payments []orderModels.Payment
	err := db.
		Where("method = ? AND status = ? AND gateway_authority <> ''", orderModels.MethodOnline, orderModels.PaymentPending).
		Where("created_at < ?", cutoff).
		Find(&payments).Error
	if err != nil {
		log.Printf("[RECONCILER] Error fetching pending payments: %v", err)
		return
	}

	if len(payments) == 0 {
		return
	}
	log.Printf("[RECONCILER] Found %d stale pending payments", len(payments))

	svc := orderService.New(db)
	gw := gateway.New()

	for _, p := range payments {
		ok, refID, err := gw.Verify(p.Amount, p.GatewayAuthority)
		if err != nil {
			// Gateway unreachable, leave the payment for the next run
			log.Printf("[RECONCILER] Verify failed for payment %d: %v", p.ID, err)
			continue
		}

		if ok {
			if _, err := svc.ConfirmGatewayPayment(p.ID, refID); err != nil {
				log.Printf("[RECONCILER] Error confirming payment %d: %v", p.ID, err)
				continue
			}
			log.Printf("[RECONCILER] Payment %d confirmed with ref %s", p.ID, refID)
		} else {
			if err := svc.FailGatewayPayment(p.ID); err != nil {
				log.Printf("[RECONCILER] Error failing payment %d: %v", p.ID, err)
				continue
			}
			log.Printf("[RECONCILER] Payment %d marked as failed", p.ID)
		}
	}
}
