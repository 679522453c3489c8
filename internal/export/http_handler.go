package export

import (
	"fmt"
	"net/http"
	"strconv"
)

// ServeWorkbook writes the workbook as a download.
func ServeWorkbook(w http.ResponseWriter, workbook Workbook) {
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", workbook.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(workbook.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook.Data)
}
