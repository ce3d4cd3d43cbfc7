package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"

	"github.com/camden-git/mediacatalog/scanner"
)

type ScanHandler struct {
	Scanner *scanner.Scanner
}

// TriggerScan runs one synchronous ingestion pass over the requested
// root-relative subtree ("" means the whole root) and returns its summary.
// While another scan holds the catalog the call answers 409; a path outside
// the root answers 403.
func (sh *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path        string `json:"path"`
		SkipScanned bool   `json:"skip_scanned"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
			return
		}
	}

	progress := func(ev scanner.ProgressEvent) {
		log.Printf("scan progress: phase=%s directories=%d files=%d processed=%d written=%d",
			ev.Phase, ev.Directories, ev.Files, ev.Processed, ev.Written)
	}

	summary, err := sh.Scanner.Scan(req.Path, req.SkipScanned, progress)
	if err != nil {
		switch {
		case errors.Is(err, scanner.ErrScanInProgress):
			WriteAPIError(w, http.StatusConflict, "scan_in_progress", "A scan is already in progress")
		case errors.Is(err, scanner.ErrPathOutsideRoot):
			WriteAPIError(w, http.StatusForbidden, "forbidden_path", "Requested path is outside the scan root")
		case errors.Is(err, fs.ErrNotExist):
			WriteAPIError(w, http.StatusNotFound, "not_found", "Requested path does not exist under the scan root")
		default:
			log.Printf("Error running scan: %v", err)
			WriteAPIError(w, http.StatusInternalServerError, "scan_failed", "Scan failed: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
