package user_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/metro-ticketing/internal"
	userDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/metro-ticketing/internal/user"
	userPostgres "github.com/frahmantamala/metro-ticketing/internal/user/postgres"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

var _ = Describe("User service", func() {
	var (
		svc *user.Service
		ctx context.Context
		id  int64
	)

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:  logger.Default.LogMode(logger.Silent),
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{})).To(Succeed())

		u := &userDatamodel.User{FullName: "Asha Patil", Email: "asha@example.com", PasswordHash: "x"}
		Expect(db.Create(u).Error).To(Succeed())
		id = u.ID

		ctx = context.Background()
		svc = user.NewService(userPostgres.NewUserRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("returns the profile without credentials", func() {
		u, err := svc.GetProfile(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.FullName).To(Equal("Asha Patil"))
		Expect(u.Email).To(Equal("asha@example.com"))
	})

	It("reports unknown users as not found", func() {
		_, err := svc.GetProfile(ctx, id+100)
		Expect(err).To(MatchError(internal.ErrUserNotFound))
	})

	It("updates only the provided fields", func() {
		phone := " 9800000000 "
		u, err := svc.UpdateProfile(ctx, id, user.UpdateProfileDTO{PhoneNumber: &phone})
		Expect(err).NotTo(HaveOccurred())
		Expect(u.PhoneNumber).To(Equal("9800000000"))
		Expect(u.FullName).To(Equal("Asha Patil"))
	})

	It("rejects a blank name", func() {
		blank := "  "
		_, err := svc.UpdateProfile(ctx, id, user.UpdateProfileDTO{FullName: &blank})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
	})
})
