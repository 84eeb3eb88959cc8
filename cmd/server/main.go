package main

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	efaktur "github.com/efakturid/efaktur-validator-go"
)

var validator *efaktur.Validator

func main() {
	// Load environment variables; a missing .env just means the environment
	// is configured directly.
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file loaded")
	}

	validator = efaktur.NewValidator(buildRecognizer(), efaktur.NewDJPClient(djpTimeout()))
	validator.SetCompareOptions(efaktur.CompareOptions{
		FoldDiacritics: os.Getenv("NAME_FOLD_DIACRITICS") == "true",
	})
	if os.Getenv("DEBUG") == "true" {
		validator.SetDebug(true)
	}

	r := gin.Default()
	r.Use(corsMiddleware())

	r.POST("/validate-efaktur", validateEFaktur)
	r.GET("/", healthCheck)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	logrus.WithField("port", port).Info("starting e-Faktur validation service")
	if err := r.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func buildRecognizer() efaktur.TextRecognizer {
	if os.Getenv("OCR_PROVIDER") == "azure" {
		endpoint := os.Getenv("AZURE_VISION_ENDPOINT")
		key := os.Getenv("AZURE_VISION_KEY")
		if endpoint == "" || key == "" {
			logrus.Fatal("OCR_PROVIDER=azure requires AZURE_VISION_ENDPOINT and AZURE_VISION_KEY")
		}
		return efaktur.NewAzureRecognizer(endpoint, key)
	}
	tess := efaktur.NewTesseractRecognizer()
	tess.Command = os.Getenv("TESSERACT_CMD")
	tess.Languages = os.Getenv("TESSERACT_LANGS")
	return tess
}

func djpTimeout() time.Duration {
	raw := os.Getenv("DJP_TIMEOUT")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		logrus.WithField("DJP_TIMEOUT", raw).Warn("invalid timeout, using default")
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func validateEFaktur(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "file field is required")
		return
	}

	mediaType := efaktur.DetectMediaType(fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if mediaType == "" {
		errorResponse(c, http.StatusBadRequest, efaktur.ErrUnsupportedFormat.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	outcome, err := validator.Validate(c.Request.Context(), data, mediaType)
	if err != nil {
		status, message := mapPipelineError(err)
		logrus.WithError(err).WithField("file", fileHeader.Filename).Warn("validation failed")
		errorResponse(c, status, message)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// mapPipelineError translates the pipeline's error taxonomy to HTTP statuses:
// input problems are the client's fault, DJP problems are upstream failures.
func mapPipelineError(err error) (int, string) {
	var netErr *efaktur.NetworkError
	var httpErr *efaktur.HTTPError

	switch {
	case errors.Is(err, efaktur.ErrUnsupportedFormat),
		errors.Is(err, efaktur.ErrCorruptInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, efaktur.ErrQRNotFound):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &netErr), errors.As(err, &httpErr),
		errors.Is(err, efaktur.ErrMalformedResponse):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "internal server error during validation"
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, efaktur.ValidationOutcome{
		Status:  efaktur.StatusError,
		Message: message,
	})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "E-Faktur Validation Service is running"})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
