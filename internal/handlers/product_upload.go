package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/logger"
)

const maxImageSize = 5 << 20

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// ImageStore keeps product images under <Root>/uploads/products. Stored
// paths are relative to Root so they can be served statically.
type ImageStore struct {
	Root string
}

/*
=======================
  PARSER
=======================
*/

// parseMultipartProductRequest reads the multipart variant of the product
// payload. Repeated fields take their last value.
func parseMultipartProductRequest(c *gin.Context, images ImageStore) (productInput, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return productInput{}, err
	}

	var input productInput
	last := func(key string) (string, bool) {
		values := c.PostFormArray(key)
		if len(values) == 0 {
			return "", false
		}
		return strings.TrimSpace(values[len(values)-1]), true
	}

	for key, dst := range map[string]**string{
		"name":          &input.Name,
		"description":   &input.Description,
		"productCode":   &input.ProductCode,
		"categoryId":    &input.CategoryID,
		"productTypeId": &input.ProductTypeID,
		"unit":          &input.Unit,
	} {
		if value, ok := last(key); ok {
			v := value
			*dst = &v
		}
	}

	for key, dst := range map[string]**float64{
		"basePrice": &input.BasePrice,
		"salePrice": &input.SalePrice,
	} {
		if value, ok := last(key); ok {
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return productInput{}, fmt.Errorf("%s must be a number", key)
			}
			*dst = &parsed
		}
	}

	for key, dst := range map[string]**int{
		"currentStock": &input.CurrentStock,
		"minStock":     &input.MinStock,
	} {
		if value, ok := last(key); ok {
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return productInput{}, fmt.Errorf("%s must be an integer", key)
			}
			*dst = &parsed
		}
	}

	for key, dst := range map[string]**bool{
		"saleEnabled": &input.SaleEnabled,
		"trackStock":  &input.TrackStock,
		"isActive":    &input.IsActive,
		"isAvailable": &input.IsAvailable,
	} {
		if value, ok := last(key); ok {
			parsed, err := parseBoolValue(value)
			if err != nil {
				return productInput{}, fmt.Errorf("%s must be a boolean", key)
			}
			*dst = &parsed
		}
	}

	file, err := c.FormFile("image")
	if err == nil {
		imagePath, err := images.Save(file)
		if err != nil {
			return productInput{}, err
		}
		input.ImagePath = imagePath
	} else if !errors.Is(err, http.ErrMissingFile) && !strings.Contains(err.Error(), "no such file") {
		return productInput{}, err
	}

	return input, nil
}

/*
=======================
  IMAGE STORAGE
=======================
*/

func (s ImageStore) Save(file *multipart.FileHeader) (string, error) {
	log := logger.For("upload")

	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", fmt.Errorf("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %s", extension)
	}
	if file.Size > maxImageSize {
		return "", fmt.Errorf("image file too large (max 5MB)")
	}

	filename := primitive.NewObjectID().Hex() + extension
	dir := filepath.Join(s.Root, "uploads", "products")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithError(err).Errorf("failed to create directory %s", dir)
		return "", err
	}

	fullPath := filepath.Join(dir, filename)
	out, err := os.Create(fullPath)
	if err != nil {
		log.WithError(err).Errorf("failed to create file %s", fullPath)
		return "", err
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		return "", err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		log.WithError(err).Errorf("failed to save file %s", fullPath)
		return "", err
	}

	log.WithField("path", fullPath).Debug("image saved")
	return path.Join("uploads", "products", filename), nil
}

// Delete removes a stored upload. Paths outside <Root>/uploads are refused.
func (s ImageStore) Delete(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(trimmed, "/")), "/")
	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	cleanBase := filepath.Clean(s.Root)
	cleanTarget := filepath.Clean(filepath.Join(cleanBase, filepath.FromSlash(cleanRel)))
	if cleanTarget != cleanBase && !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside public root: %s", relPath)
	}

	if err := os.Remove(cleanTarget); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func parseBoolValue(value string) (bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "on" {
		return true, nil
	}
	return strconv.ParseBool(value)
}
