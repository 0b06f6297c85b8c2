package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/xmlgen"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrNotValidatedYet = errors.New("declaration must be validated before XML projection")

// ExportArchive — внешнее хранилище для архивирования выгрузок.
type ExportArchive interface {
	Upload(ctx context.Context, key string, payload []byte) (string, error)
}

// ExportService — проекция декларации в XML и версияция выгрузок.
type ExportService interface {
	ProjectXML(declarationID uint) (*model.XmlExport, error)
	ListVersions(declarationID uint) ([]model.XmlExport, error)
	GetExport(exportID uint) (*model.XmlExport, error)
}

type exportService struct {
	declRepo    repository.DeclarationRepository
	exportRepo  repository.ExportRepository
	catalogRepo repository.CatalogRepository
	archive     ExportArchive
	db          *gorm.DB
}

func NewExportService(
	declRepo repository.DeclarationRepository,
	exportRepo repository.ExportRepository,
	catalogRepo repository.CatalogRepository,
	archive ExportArchive,
	db *gorm.DB,
) ExportService {
	return &exportService{
		declRepo:    declRepo,
		exportRepo:  exportRepo,
		catalogRepo: catalogRepo,
		archive:     archive,
		db:          db,
	}
}

// статусы, в которых проекция разрешена (validated и дальше по графу)
var projectableStatuses = map[model.DeclarationStatus]bool{
	model.StatusValidated:       true,
	model.StatusAwaitingConsent: true,
	model.StatusSigned:          true,
	model.StatusSubmitted:       true,
	model.StatusAccepted:        true,
	model.StatusRejected:        true,
}

// ProjectXML строит документ и сохраняет новую версию под строчной
// блокировкой декларации: номера версий монотонны даже при
// конкурентных вызовах.
func (s *exportService) ProjectXML(declarationID uint) (*model.XmlExport, error) {
	var export *model.XmlExport

	err := s.db.Transaction(func(tx *gorm.DB) error {
		decl, err := s.declRepo.FindByIDForUpdate(tx, declarationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeclarationNotFound
			}
			return err
		}
		if !projectableStatuses[decl.Status] {
			return ErrNotValidatedYet
		}

		items, err := s.declRepo.Items(declarationID)
		if err != nil {
			return err
		}
		fieldMaps, err := s.catalogRepo.ListFieldMaps(decl.FormCode)
		if err != nil {
			return err
		}

		payload, contentHash, err := xmlgen.Project(decl, items, fieldMaps)
		if err != nil {
			return err
		}

		version, err := s.exportRepo.NextVersion(tx, declarationID)
		if err != nil {
			return err
		}

		export = &model.XmlExport{
			DeclarationID: declarationID,
			Payload:       payload,
			SchemaVersion: version,
			ContentHash:   contentHash,
			Signed:        decl.Status == model.StatusSigned || decl.Status == model.StatusSubmitted || decl.Status == model.StatusAccepted,
		}
		if err := s.exportRepo.Create(tx, export); err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&model.Declaration{}).
			Where("id = ?", declarationID).
			Update("exported_at", &now).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("XML export created", map[string]interface{}{
		"declaration_id": declarationID,
		"schema_version": export.SchemaVersion,
		"content_hash":   export.ContentHash,
	})

	// архивирование вне транзакции; неудача не отменяет выгрузку
	if s.archive != nil && export.Signed {
		s.archiveExport(export)
	}

	return export, nil
}

func (s *exportService) archiveExport(export *model.XmlExport) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := fmt.Sprintf("declarations/%d/v%d_%s.xml", export.DeclarationID, export.SchemaVersion, export.ContentHash[:12])
	if _, err := s.archive.Upload(ctx, key, []byte(export.Payload)); err != nil {
		logger.Error("Failed to archive XML export", err, map[string]interface{}{
			"export_id": export.ID,
			"key":       key,
		})
		return
	}
	if err := s.exportRepo.SetArchiveKey(export.ID, key); err != nil {
		logger.Error("Failed to store archive key", err, map[string]interface{}{
			"export_id": export.ID,
		})
		return
	}
	export.ArchiveKey = key
}

func (s *exportService) ListVersions(declarationID uint) ([]model.XmlExport, error) {
	return s.exportRepo.ListByDeclaration(declarationID)
}

func (s *exportService) GetExport(exportID uint) (*model.XmlExport, error) {
	export, err := s.exportRepo.FindByID(exportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeclarationNotFound
		}
		return nil, err
	}
	return export, nil
}
