// Package catalog keeps an SQLite index of decoded models and their materials,
// so assets can be searched by material name or texture without decoding again.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Faultbox/vismodel/pkg/formats"
)

// SchemaVersion is stored in the metadata table and bumped on incompatible changes.
const SchemaVersion = 1

// ErrNotIndexed is returned when a model has no catalog entry.
var ErrNotIndexed = errors.New("model not indexed")

// ModelRecord is one decoded model file.
type ModelRecord struct {
	Path      string `gorm:"primaryKey"`
	Size      int64
	Materials int
	Meshes    int
	Vertices  int
	Triangles int
	Skeletons int
	Bones     int
	UpdatedAt time.Time
}

// MaterialRecord is one material of a model; Slot is its index in file order,
// which is what submesh bindings refer to.
type MaterialRecord struct {
	ModelPath    string `gorm:"primaryKey"`
	Slot         int    `gorm:"primaryKey;autoIncrement:false"`
	Name         string `gorm:"index:idx_material_name"`
	Version      uint16
	SortKey      uint32
	Transparency string
	Flags        string
	DiffuseMap   string `gorm:"index:idx_material_diffuse"`
	SpecularMap  string
	NormalMap    string
}

// Metadata holds catalog-wide key/value settings.
type Metadata struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Catalog is an opened catalog database.
type Catalog struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (or creates) the catalog at path and migrates its schema.
func Open(path string, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ModelRecord{}, &MaterialRecord{}, &Metadata{}); err != nil {
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	if err := db.Save(&Metadata{Key: "schema_version", Value: fmt.Sprint(SchemaVersion)}).Error; err != nil {
		return nil, fmt.Errorf("writing catalog metadata: %w", err)
	}

	log.Debug("catalog opened", zap.String("path", path))
	return &Catalog{db: db, log: log}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Index records a decoded model, replacing whatever was stored for path.
func (c *Catalog) Index(path string, size int64, m *formats.Model) error {
	path = normalize(path)
	rec := ModelRecord{
		Path:      path,
		Size:      size,
		Materials: len(m.Materials),
		Meshes:    len(m.Meshes),
		Vertices:  m.TotalVertexCount(),
		Triangles: m.TotalTriangleCount(),
		Skeletons: len(m.Skeletons),
	}
	for _, s := range m.Skeletons {
		rec.Bones += len(s.Bones)
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		if err := tx.Where("model_path = ?", path).Delete(&MaterialRecord{}).Error; err != nil {
			return err
		}
		if len(m.Materials) == 0 {
			return nil
		}
		rows := make([]MaterialRecord, len(m.Materials))
		for i, mat := range m.Materials {
			rows[i] = MaterialRecord{
				ModelPath:    path,
				Slot:         i,
				Name:         mat.Name,
				Version:      mat.Version,
				SortKey:      mat.SortKey,
				Transparency: mat.Transparency.String(),
				Flags:        mat.Flags.String(),
				DiffuseMap:   mat.DiffuseMap,
				SpecularMap:  mat.SpecularMap,
				NormalMap:    mat.NormalMap,
			}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}

	c.log.Debug("model indexed", zap.String("path", path), zap.Int("materials", len(m.Materials)))
	return nil
}

// Model returns the record for one model.
func (c *Catalog) Model(path string) (*ModelRecord, error) {
	var rec ModelRecord
	err := c.db.First(&rec, "path = ?", normalize(path)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, path)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Models returns every indexed model ordered by path.
func (c *Catalog) Models() ([]ModelRecord, error) {
	var recs []ModelRecord
	if err := c.db.Order("path").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Materials returns the materials of one model in slot order.
func (c *Catalog) Materials(path string) ([]MaterialRecord, error) {
	var recs []MaterialRecord
	if err := c.db.Where("model_path = ?", normalize(path)).Order("slot").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// MaterialsNamed returns every material with the given name across all models.
func (c *Catalog) MaterialsNamed(name string) ([]MaterialRecord, error) {
	var recs []MaterialRecord
	if err := c.db.Where("name = ?", name).Order("model_path, slot").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// UsingTexture returns the materials that reference texture in any map,
// compared case-insensitively.
func (c *Catalog) UsingTexture(texture string) ([]MaterialRecord, error) {
	t := strings.ToLower(strings.ReplaceAll(texture, "\\", "/"))
	var recs []MaterialRecord
	err := c.db.
		Where("lower(replace(diffuse_map, '\\', '/')) = ? OR lower(replace(specular_map, '\\', '/')) = ? OR lower(replace(normal_map, '\\', '/')) = ?", t, t, t).
		Order("model_path, slot").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Remove deletes a model and its materials.
func (c *Catalog) Remove(path string) error {
	path = normalize(path)
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("model_path = ?", path).Delete(&MaterialRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("path = ?", path).Delete(&ModelRecord{}).Error
	})
}

func normalize(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
