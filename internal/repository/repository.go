package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Spot    SpotRepository
	Kelas   KelasRepository
	Setting SettingRepository
	Booking BookingRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Spot:    NewSpotRepo(db),
		Kelas:   NewKelasRepo(db),
		Setting: NewSettingRepo(db),
		Booking: NewBookingRepo(db),
	}
}
