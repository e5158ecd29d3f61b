package discountService

import (
	"errors"
	"fmt"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDiscountNotFound = errors.New("discount code not found")
	ErrDiscountInvalid  = errors.New("discount code is not valid")
)

// Rejection reasons returned by Validate. The first failing check wins.
const (
	ReasonInactive    = "discount code is inactive"
	ReasonNotStarted  = "discount code is not active yet"
	ReasonExpired     = "discount code has expired"
	ReasonExhausted   = "discount code has reached its maximum uses"
	ReasonPriceTooLow = "course price is below the minimum for this discount code"
	ReasonWrongCourse = "discount code does not apply to this course"
)

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Validate checks a discount against a course at the given time. It is a pure
// check: display-time validation only. Redemption re-validates under a row
// lock, because the answer here can be stale by the time anyone redeems.
func Validate(d *courseModels.Discount, c *courseModels.Course, now time.Time) (bool, string) {
	if d.CourseID != c.ID {
		return false, ReasonWrongCourse
	}
	if !d.IsActive {
		return false, ReasonInactive
	}
	if now.Before(d.StartDate) {
		return false, ReasonNotStarted
	}
	if now.After(d.EndDate) {
		return false, ReasonExpired
	}
	if d.MaxUses != nil && d.CurrentUses >= *d.MaxUses {
		return false, ReasonExhausted
	}
	if d.MinCoursePrice != nil && c.Price < *d.MinCoursePrice {
		return false, ReasonPriceTooLow
	}
	return true, ""
}

// Redeem consumes one use of the code and returns the discounted course
// price, atomically.
func (s *Service) Redeem(code string, courseID uint) (models.Money, *courseModels.Discount, error) {
	var price models.Money
	var discount *courseModels.Discount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		price, discount, err = RedeemTx(tx, code, courseID)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return price, discount, nil
}

// RedeemTx redeems inside a caller-owned transaction. The discount row is
// locked and re-validated before current_uses is incremented, so two
// concurrent redemptions of the last remaining use cannot both succeed.
func RedeemTx(tx *gorm.DB, code string, courseID uint) (models.Money, *courseModels.Discount, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var discount courseModels.Discount
	if err := q.Where("code = ?", code).First(&discount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, ErrDiscountNotFound
		}
		return 0, nil, err
	}

	var course courseModels.Course
	if err := tx.Where("id = ? AND is_deleted = false", courseID).First(&course).Error; err != nil {
		return 0, nil, fmt.Errorf("load course: %w", err)
	}

	valid, reason := Validate(&discount, &course, time.Now())
	if !valid {
		return 0, nil, fmt.Errorf("%w: %s", ErrDiscountInvalid, reason)
	}

	if err := tx.Model(&discount).Update("current_uses", discount.CurrentUses+1).Error; err != nil {
		return 0, nil, fmt.Errorf("increment uses: %w", err)
	}
	discount.CurrentUses++

	return course.Price.PercentOff(discount.Percentage), &discount, nil
}
