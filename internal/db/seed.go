package db

import (
	"errors"

	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/models"
)

func seed(db *gorm.DB) {
	baseRoles := []models.Role{
		{Name: auth.RoleAdministrador, Description: "Full back-office access"},
		{Name: auth.RoleDirectorio, Description: "Board: collections approvals"},
		{Name: auth.RoleJefeOperativo, Description: "Operations chief"},
		{Name: auth.RoleCobranza, Description: "Collections staff"},
		{Name: auth.RoleUsuario, Description: "Default role"},
	}
	for _, r := range baseRoles {
		var existing models.Role
		if err := db.Where("name = ?", r.Name).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			db.Create(&r)
		}
	}
	baseServices := []models.BillingService{
		{Code: "ALIC", Name: "Alícuota"},
		{Code: "MANT", Name: "Mantenimiento"},
		{Code: "AGUA", Name: "Agua"},
		{Code: "LUZ", Name: "Energía eléctrica"},
	}
	for _, s := range baseServices {
		var existing models.BillingService
		if err := db.Where("code = ?", s.Code).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			db.Create(&s)
		}
	}
}
