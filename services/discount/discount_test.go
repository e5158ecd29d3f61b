package discountService

import (
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&courseModels.Course{},
		&courseModels.Discount{},
	))
	return db
}

func createCourse(t *testing.T, db *gorm.DB, price models.Money) *courseModels.Course {
	t.Helper()

	course := courseModels.Course{
		Title:  "Go Fundamentals",
		Slug:   "go-fundamentals",
		Price:  price,
		Status: "ACTIVE",
	}
	require.NoError(t, db.Create(&course).Error)
	return &course
}

func activeWindow() (time.Time, time.Time) {
	now := time.Now()
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func TestValidateChecksInOrder(t *testing.T) {
	start, end := activeWindow()
	course := &courseModels.Course{Model: gorm.Model{ID: 1}, Price: 1000}
	maxUses := uint(5)
	minPrice := models.Money(500)

	tests := []struct {
		name     string
		discount courseModels.Discount
		valid    bool
		reason   string
	}{
		{
			name: "valid",
			discount: courseModels.Discount{
				CourseID: 1, IsActive: true, StartDate: start, EndDate: end,
				MaxUses: &maxUses, CurrentUses: 0, MinCoursePrice: &minPrice,
			},
			valid: true,
		},
		{
			name: "wrong course",
			discount: courseModels.Discount{
				CourseID: 2, IsActive: true, StartDate: start, EndDate: end,
			},
			reason: ReasonWrongCourse,
		},
		{
			name: "inactive",
			discount: courseModels.Discount{
				CourseID: 1, IsActive: false, StartDate: start, EndDate: end,
			},
			reason: ReasonInactive,
		},
		{
			name: "not started",
			discount: courseModels.Discount{
				CourseID: 1, IsActive: true,
				StartDate: time.Now().Add(time.Hour), EndDate: time.Now().Add(2 * time.Hour),
			},
			reason: ReasonNotStarted,
		},
		{
			name: "expired",
			discount: courseModels.Discount{
				CourseID: 1, IsActive: true,
				StartDate: time.Now().Add(-2 * time.Hour), EndDate: time.Now().Add(-time.Hour),
			},
			reason: ReasonExpired,
		},
		{
			name: "exhausted",
			discount: courseModels.Discount{
				CourseID: 1, IsActive: true, StartDate: start, EndDate: end,
				MaxUses: &maxUses, CurrentUses: 5,
			},
			reason: ReasonExhausted,
		},
		{
			name: "price too low",
			discount: courseModels.Discount{
				CourseID: 1, IsActive: true, StartDate: start, EndDate: end,
				MinCoursePrice: func() *models.Money { m := models.Money(2000); return &m }(),
			},
			reason: ReasonPriceTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, reason := Validate(&tt.discount, course, time.Now())
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestInactiveWinsOverExpired(t *testing.T) {
	// Both checks fail; the first failing check in order decides the reason
	course := &courseModels.Course{Model: gorm.Model{ID: 1}, Price: 1000}
	discount := courseModels.Discount{
		CourseID: 1, IsActive: false,
		StartDate: time.Now().Add(-2 * time.Hour), EndDate: time.Now().Add(-time.Hour),
	}

	valid, reason := Validate(&discount, course, time.Now())
	assert.False(t, valid)
	assert.Equal(t, ReasonInactive, reason)
}

func TestUnlimitedUsesWhenNoCap(t *testing.T) {
	start, end := activeWindow()
	course := &courseModels.Course{Model: gorm.Model{ID: 1}, Price: 1000}
	discount := courseModels.Discount{
		CourseID: 1, IsActive: true, StartDate: start, EndDate: end,
		MaxUses: nil, CurrentUses: 100000,
	}

	valid, _ := Validate(&discount, course, time.Now())
	assert.True(t, valid)
}

func TestRedeemReturnsDiscountedPrice(t *testing.T) {
	db := setupTestDB(t)
	course := createCourse(t, db, 1000)

	start, end := activeWindow()
	discount := courseModels.Discount{
		CourseID: course.ID, Code: "SAVE25", Percentage: 25,
		StartDate: start, EndDate: end, IsActive: true,
	}
	require.NoError(t, db.Create(&discount).Error)

	price, redeemed, err := New(db).Redeem("SAVE25", course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(750), price)
	assert.Equal(t, uint(1), redeemed.CurrentUses)

	var stored courseModels.Discount
	require.NoError(t, db.First(&stored, discount.ID).Error)
	assert.Equal(t, uint(1), stored.CurrentUses)
}

func TestRedeemConsumesLastUse(t *testing.T) {
	db := setupTestDB(t)
	course := createCourse(t, db, 1000)

	start, end := activeWindow()
	maxUses := uint(1)
	discount := courseModels.Discount{
		CourseID: course.ID, Code: "LAST1", Percentage: 50,
		StartDate: start, EndDate: end, IsActive: true, MaxUses: &maxUses,
	}
	require.NoError(t, db.Create(&discount).Error)

	svc := New(db)

	price, _, err := svc.Redeem("LAST1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(500), price)

	// The cap is spent; a second redemption must fail
	_, _, err = svc.Redeem("LAST1", course.ID)
	require.ErrorIs(t, err, ErrDiscountInvalid)
	assert.Contains(t, err.Error(), ReasonExhausted)

	var stored courseModels.Discount
	require.NoError(t, db.First(&stored, discount.ID).Error)
	assert.Equal(t, uint(1), stored.CurrentUses)
}

func TestRedeemUnknownCode(t *testing.T) {
	db := setupTestDB(t)
	course := createCourse(t, db, 1000)

	_, _, err := New(db).Redeem("NOPE", course.ID)
	assert.ErrorIs(t, err, ErrDiscountNotFound)
}

func TestRedeemWrongCourse(t *testing.T) {
	db := setupTestDB(t)
	course := createCourse(t, db, 1000)

	other := courseModels.Course{Title: "Other", Slug: "other", Price: 500, Status: "ACTIVE"}
	require.NoError(t, db.Create(&other).Error)

	start, end := activeWindow()
	discount := courseModels.Discount{
		CourseID: course.ID, Code: "SAVE10", Percentage: 10,
		StartDate: start, EndDate: end, IsActive: true,
	}
	require.NoError(t, db.Create(&discount).Error)

	_, _, err := New(db).Redeem("SAVE10", other.ID)
	require.ErrorIs(t, err, ErrDiscountInvalid)
	assert.Contains(t, err.Error(), ReasonWrongCourse)

	// A failed redemption must not consume a use
	var stored courseModels.Discount
	require.NoError(t, db.First(&stored, discount.ID).Error)
	assert.Equal(t, uint(0), stored.CurrentUses)
}

func TestFullDiscountYieldsZero(t *testing.T) {
	db := setupTestDB(t)
	course := createCourse(t, db, 1000)

	start, end := activeWindow()
	discount := courseModels.Discount{
		CourseID: course.ID, Code: "FREE100", Percentage: 100,
		StartDate: start, EndDate: end, IsActive: true,
	}
	require.NoError(t, db.Create(&discount).Error)

	price, _, err := New(db).Redeem("FREE100", course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(0), price)
}
