package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"mace-backend/utils"
)

// ServeFile godoc
// @Summary      Serve file
// @Description  Serves a stored attachment by its path relative to the upload directory
// @Tags         Files
// @Produce      application/octet-stream
// @Param        file  query  string  true  "File path relative to storage"
// @Success      200  {file}    file
// @Failure      400  {object}  utils.Response
// @Failure      403  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /api/files [get]
func ServeFile(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileName := c.Query("file")
		if fileName == "" {
			utils.ErrorResponse(c, "file parameter is required", http.StatusBadRequest)
			return
		}

		cleanFileName := filepath.Clean(filepath.FromSlash(fileName))
		if cleanFileName != filepath.FromSlash(fileName) || strings.Contains(cleanFileName, "..") || filepath.IsAbs(cleanFileName) {
			utils.ErrorResponse(c, "invalid file path", http.StatusBadRequest)
			return
		}

		absoluteRoot, err := filepath.Abs(root)
		if err != nil {
			utils.ErrorResponse(c, "server error", http.StatusInternalServerError)
			return
		}
		filePath := filepath.Join(absoluteRoot, cleanFileName)
		if !strings.HasPrefix(filePath, absoluteRoot+string(os.PathSeparator)) {
			utils.ErrorResponse(c, "access denied", http.StatusForbidden)
			return
		}

		info, err := os.Stat(filePath)
		if err != nil || info.IsDir() {
			utils.ErrorResponse(c, "file not found", http.StatusNotFound)
			return
		}

		file, err := os.Open(filePath)
		if err != nil {
			utils.ErrorResponse(c, "server error", http.StatusInternalServerError)
			return
		}
		defer file.Close()

		buffer := make([]byte, 512)
		n, _ := file.Read(buffer)
		c.Header("Content-Type", http.DetectContentType(buffer[:n]))
		c.File(filePath)
	}
}
