package service

import (
	"errors"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"github.com/salyqtech/salyq-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidIIN    = errors.New("IIN failed checksum validation")
	ErrIINRegistered = errors.New("taxpayer with this IIN already exists")
)

type TaxpayerService interface {
	Create(userID uint, input TaxpayerInput) (*model.Taxpayer, error)
	Get(id uint) (*model.Taxpayer, error)
	ListByUser(userID uint) ([]model.Taxpayer, error)
	Update(id uint, input TaxpayerInput) (*model.Taxpayer, error)
}

type TaxpayerInput struct {
	IIN         string             `json:"iin"`
	Kind        model.TaxpayerKind `json:"kind"`
	LastName    string             `json:"last_name"`
	FirstName   string             `json:"first_name"`
	MiddleName  string             `json:"middle_name"`
	Phone       string             `json:"phone"`
	Email       string             `json:"email"`
	Resident    *bool              `json:"resident"`
	SpouseIIN   string             `json:"spouse_iin"`
	LegalRepIIN string             `json:"legal_rep_iin"`
}

type taxpayerService struct {
	taxpayerRepo repository.TaxpayerRepository
}

func NewTaxpayerService(taxpayerRepo repository.TaxpayerRepository) TaxpayerService {
	return &taxpayerService{taxpayerRepo: taxpayerRepo}
}

func (s *taxpayerService) Create(userID uint, input TaxpayerInput) (*model.Taxpayer, error) {
	if !util.ValidateIIN(input.IIN) {
		return nil, ErrInvalidIIN
	}
	if input.SpouseIIN != "" && !util.ValidateIIN(input.SpouseIIN) {
		return nil, ErrInvalidIIN
	}

	if existing, err := s.taxpayerRepo.FindByIIN(input.IIN); err == nil && existing != nil {
		return nil, ErrIINRegistered
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	kind := input.Kind
	if kind == "" {
		kind = model.TaxpayerIndividual
	}
	resident := true
	if input.Resident != nil {
		resident = *input.Resident
	}

	taxpayer := &model.Taxpayer{
		UserID:      &userID,
		IIN:         input.IIN,
		Kind:        kind,
		LastName:    input.LastName,
		FirstName:   input.FirstName,
		MiddleName:  input.MiddleName,
		Phone:       input.Phone,
		Email:       input.Email,
		Resident:    resident,
		SpouseIIN:   input.SpouseIIN,
		LegalRepIIN: input.LegalRepIIN,
	}
	if err := s.taxpayerRepo.Create(taxpayer); err != nil {
		return nil, err
	}

	logger.Info("Taxpayer registered", map[string]interface{}{
		"taxpayer_id": taxpayer.ID,
		"kind":        taxpayer.Kind,
	})
	return taxpayer, nil
}

func (s *taxpayerService) Get(id uint) (*model.Taxpayer, error) {
	taxpayer, err := s.taxpayerRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaxpayerNotFound
		}
		return nil, err
	}
	return taxpayer, nil
}

func (s *taxpayerService) ListByUser(userID uint) ([]model.Taxpayer, error) {
	return s.taxpayerRepo.FindByUserID(userID)
}

func (s *taxpayerService) Update(id uint, input TaxpayerInput) (*model.Taxpayer, error) {
	taxpayer, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	// ИИН неизменяем после создания
	if input.LastName != "" {
		taxpayer.LastName = input.LastName
	}
	if input.FirstName != "" {
		taxpayer.FirstName = input.FirstName
	}
	if input.MiddleName != "" {
		taxpayer.MiddleName = input.MiddleName
	}
	if input.Phone != "" {
		taxpayer.Phone = input.Phone
	}
	if input.Email != "" {
		taxpayer.Email = input.Email
	}
	if input.Resident != nil {
		taxpayer.Resident = *input.Resident
	}
	if input.SpouseIIN != "" {
		if !util.ValidateIIN(input.SpouseIIN) {
			return nil, ErrInvalidIIN
		}
		taxpayer.SpouseIIN = input.SpouseIIN
	}
	if input.LegalRepIIN != "" {
		taxpayer.LegalRepIIN = input.LegalRepIIN
	}

	if err := s.taxpayerRepo.Update(taxpayer); err != nil {
		return nil, err
	}
	return taxpayer, nil
}
