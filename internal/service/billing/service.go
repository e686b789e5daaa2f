// Package billing reconciles bills: test-only bills, adding and removing
// test lines, settlement and the paid/unpaid reports.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository"
	"github.com/jwalitptl/frontdesk-api/internal/service/event"
	"github.com/jwalitptl/frontdesk-api/pkg/auth"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
)

var (
	billingRoles = []model.Role{model.RoleAdmin, model.RoleCashier, model.RoleReceptionist}
	cashierRoles = []model.Role{model.RoleAdmin, model.RoleCashier}
)

type Service struct {
	tx           repository.TxManager
	bills        repository.BillRepository
	appointments repository.AppointmentRepository
	directory    repository.DirectoryRepository
	events       event.Emitter
	now          func() time.Time
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	tx repository.TxManager,
	bills repository.BillRepository,
	appointments repository.AppointmentRepository,
	directory repository.DirectoryRepository,
	events event.Emitter,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		tx:           tx,
		bills:        bills,
		appointments: appointments,
		directory:    directory,
		events:       events,
		now:          time.Now,
		logger:       logger,
		metrics:      metrics,
	}
}

func (s *Service) observe(operation string, err error) {
	s.metrics.BillOperations.WithLabelValues(operation, metrics.Outcome(err)).Inc()
}

// CreateTestOnlyBill bills a patient for tests outside any appointment.
// Repeated IDs are billed once; each price is copied from the test as it is now.
func (s *Service) CreateTestOnlyBill(ctx context.Context, patientID int64, req *model.CreateTestBillRequest) (bill *model.Bill, err error) {
	defer func() { s.observe("create_test_bill", err) }()

	caller, err := auth.Require(ctx, billingRoles...)
	if err != nil {
		return nil, err
	}
	if len(req.TestIDs) == 0 {
		return nil, apperrors.NewBadRequest("at least one medical test is required", nil)
	}

	seen := make(map[int64]bool, len(req.TestIDs))
	testIDs := make([]int64, 0, len(req.TestIDs))
	for _, id := range req.TestIDs {
		if !seen[id] {
			seen[id] = true
			testIDs = append(testIDs, id)
		}
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		patient, err := s.directory.GetPatient(ctx, patientID)
		if err != nil {
			return err
		}

		items := make([]model.BillItem, 0, len(testIDs))
		for _, id := range testIDs {
			test, err := s.directory.GetMedicalTest(ctx, id)
			if errors.Is(err, apperrors.NotFoundErr) {
				return apperrors.NewBadRequest(fmt.Sprintf("medical test %d does not exist", id), err)
			}
			if err != nil {
				return err
			}
			if !test.Active {
				return apperrors.NewBadRequest(fmt.Sprintf("medical test %d is not active", id), nil)
			}
			items = append(items, model.TestItem(*test))
		}

		bill = model.NewTestOnlyBill(patient.ID, patient.Name, items...)
		if err := s.bills.Create(ctx, bill); err != nil {
			return fmt.Errorf("failed to create bill: %w", err)
		}

		return s.events.Emit(ctx, model.EventBillCreated, bill.ID, map[string]interface{}{
			"bill_id":      bill.ID,
			"bill_type":    bill.Type(),
			"patient_id":   bill.PatientID,
			"test_ids":     testIDs,
			"total_amount": bill.Total(),
			"created_by":   caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BillsCreated.WithLabelValues(string(bill.Type())).Inc()
	s.logger.Info("Test bill created", "bill_id", bill.ID, "patient_id", patientID, "total", bill.Total().String())
	return bill, nil
}

// AddTest appends a line for testID to an unpaid bill.
func (s *Service) AddTest(ctx context.Context, billID, testID int64) (bill *model.Bill, err error) {
	defer func() { s.observe("add_test", err) }()

	caller, err := auth.Require(ctx, billingRoles...)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.bills.GetForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		test, err := s.directory.GetMedicalTest(ctx, testID)
		if err != nil {
			return err
		}
		if err := current.CheckAddTest(*test); err != nil {
			return err
		}

		item := model.TestItem(*test)
		if err := s.bills.AddItem(ctx, billID, &item); err != nil {
			return fmt.Errorf("failed to add bill item: %w", err)
		}
		if bill, err = s.bills.Get(ctx, billID); err != nil {
			return err
		}

		return s.events.Emit(ctx, model.EventBillItemAdded, billID, map[string]interface{}{
			"bill_id":      billID,
			"item_id":      item.ID,
			"test_id":      testID,
			"price":        item.Price,
			"total_amount": bill.Total(),
			"added_by":     caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Test added to bill", "bill_id", billID, "test_id", testID, "total", bill.Total().String())
	return bill, nil
}

// RemoveItem deletes a TEST line from an unpaid bill. Fee lines stay.
func (s *Service) RemoveItem(ctx context.Context, billID, itemID int64) (bill *model.Bill, err error) {
	defer func() { s.observe("remove_item", err) }()

	caller, err := auth.Require(ctx, billingRoles...)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.bills.GetForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		item, err := current.CheckRemoveItem(itemID)
		if err != nil {
			return err
		}
		if err := s.bills.RemoveItem(ctx, billID, itemID); err != nil {
			return fmt.Errorf("failed to remove bill item: %w", err)
		}
		if bill, err = s.bills.Get(ctx, billID); err != nil {
			return err
		}

		return s.events.Emit(ctx, model.EventBillItemRemoved, billID, map[string]interface{}{
			"bill_id":      billID,
			"item_id":      itemID,
			"item_name":    item.ItemName,
			"total_amount": bill.Total(),
			"removed_by":   caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Item removed from bill", "bill_id", billID, "item_id", itemID, "total", bill.Total().String())
	return bill, nil
}

// Pay settles a bill in full. A blank method means CASH. When two cashiers
// pay the same bill at once exactly one succeeds; the other gets InvalidState.
func (s *Service) Pay(ctx context.Context, billID int64, req *model.PayBillRequest) (bill *model.Bill, err error) {
	defer func() { s.observe("pay", err) }()

	caller, err := auth.Require(ctx, cashierRoles...)
	if err != nil {
		return nil, err
	}
	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.bills.GetForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if err := current.CheckPay(); err != nil {
			return err
		}

		now := s.now()
		total := current.Total()
		if err := s.bills.MarkPaid(ctx, billID, method, now); err != nil {
			return err
		}
		payment := &model.Payment{
			BillID: billID,
			Amount: total,
			Method: method,
			PaidAt: now,
			PaidBy: caller.UserID,
		}
		if err := s.bills.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		if appointmentID, ok := current.AppointmentID(); ok {
			if err := s.markAppointmentPaid(ctx, appointmentID, total, now); err != nil {
				return err
			}
		}
		if bill, err = s.bills.Get(ctx, billID); err != nil {
			return err
		}

		return s.events.Emit(ctx, model.EventBillPaid, billID, map[string]interface{}{
			"bill_id":        billID,
			"payment_id":     payment.ID,
			"payment_method": method,
			"amount":         total,
			"paid_by":        caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BillsPaid.WithLabelValues(string(method)).Inc()
	s.logger.Info("Bill paid", "bill_id", billID, "method", method, "amount", bill.Total().String())
	return bill, nil
}

// markAppointmentPaid mirrors a settled appointment bill onto the
// appointment. Cancelled or rescheduled appointments are left alone.
func (s *Service) markAppointmentPaid(ctx context.Context, appointmentID int64, amount decimal.Decimal, paidAt time.Time) error {
	apt, err := s.appointments.GetForUpdate(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to load billed appointment: %w", err)
	}
	if apt.Status.Terminal() {
		return nil
	}
	apt.PaymentStatus = model.PaymentStatusPaid
	apt.PaidAmount = decimal.NewNullDecimal(amount)
	apt.PaidAt = &paidAt
	if err := s.appointments.Update(ctx, apt); err != nil {
		return fmt.Errorf("failed to update appointment payment: %w", err)
	}
	return nil
}

// DeleteBill removes an unpaid bill.
func (s *Service) DeleteBill(ctx context.Context, billID int64) (err error) {
	defer func() { s.observe("delete", err) }()

	caller, err := auth.Require(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		bill, err := s.bills.GetForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if bill.Paid {
			return apperrors.NewInvalidState("cannot delete a paid bill")
		}
		if err := s.bills.Delete(ctx, billID); err != nil {
			return fmt.Errorf("failed to delete bill: %w", err)
		}
		return s.events.Emit(ctx, model.EventBillDeleted, billID, map[string]interface{}{
			"bill_id":    billID,
			"bill_type":  bill.Type(),
			"deleted_by": caller.UserID,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("Bill deleted", "bill_id", billID)
	return nil
}

func (s *Service) Get(ctx context.Context, billID int64) (*model.Bill, error) {
	if _, err := auth.Require(ctx, billingRoles...); err != nil {
		return nil, err
	}
	return s.bills.Get(ctx, billID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*model.Bill, error) {
	if _, err := auth.Require(ctx, billingRoles...); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.bills.ListByPatient(ctx, patientID)
}

func (s *Service) ListUnpaid(ctx context.Context) ([]*model.Bill, error) {
	if _, err := auth.Require(ctx, cashierRoles...); err != nil {
		return nil, err
	}
	return s.bills.ListByPaid(ctx, false)
}

func (s *Service) ListPaid(ctx context.Context) ([]*model.Bill, error) {
	if _, err := auth.Require(ctx, cashierRoles...); err != nil {
		return nil, err
	}
	return s.bills.ListByPaid(ctx, true)
}

// Revenue totals every paid bill.
func (s *Service) Revenue(ctx context.Context) (*model.RevenueSummary, error) {
	if _, err := auth.Require(ctx, cashierRoles...); err != nil {
		return nil, err
	}
	return s.bills.Revenue(ctx)
}
