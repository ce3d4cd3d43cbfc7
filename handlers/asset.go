package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/camden-git/mediacatalog/database"
	"github.com/camden-git/mediacatalog/repository"
)

type AssetHandler struct {
	Assets repository.AssetRepositoryInterface
	SQLDB  *sql.DB // for the raw aggregate directory-tree query
}

// ListByTimeRange serves GET /api/assets?start=...&end=... with inclusive
// RFC3339 bounds.
func (ah *AssetHandler) ListByTimeRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid or missing 'start' (RFC3339 expected)")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid or missing 'end' (RFC3339 expected)")
		return
	}

	assets, err := ah.Assets.ListByTimeRange(start.Unix(), end.Unix())
	if err != nil {
		log.Printf("Error listing assets by time range: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve assets")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// ListByBounds serves GET /api/assets/area?north=..&south=..&east=..&west=..
func (ah *AssetHandler) ListByBounds(w http.ResponseWriter, r *http.Request) {
	parse := func(key string) (float64, error) {
		return strconv.ParseFloat(r.URL.Query().Get(key), 64)
	}
	north, errN := parse("north")
	south, errS := parse("south")
	east, errE := parse("east")
	west, errW := parse("west")
	if errN != nil || errS != nil || errE != nil || errW != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing or invalid bounding box parameters (north, south, east, west)")
		return
	}

	assets, err := ah.Assets.ListByBounds(north, south, east, west)
	if err != nil {
		log.Printf("Error listing assets by bounds: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve assets")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// ListByDirectory serves GET /api/assets/directory?path=relative/path
func (ah *AssetHandler) ListByDirectory(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	assets, err := ah.Assets.ListByDirectory(path)
	if err != nil {
		log.Printf("Error listing assets in directory %q: %v", path, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve assets")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// ListByTags serves GET /api/assets/tags?ids=1,2,3 with union semantics.
func (ah *AssetHandler) ListByTags(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if strings.TrimSpace(idsParam) == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required parameter: ids")
		return
	}

	var tagIDs []uint
	for _, part := range strings.Split(idsParam, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid tag id: "+part)
			return
		}
		tagIDs = append(tagIDs, uint(id))
	}

	assets, err := ah.Assets.ListByTagIDs(tagIDs)
	if err != nil {
		log.Printf("Error listing assets by tags %v: %v", tagIDs, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve assets")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// Lookup serves GET /api/assets/lookup?directory=..&filename=..
func (ah *AssetHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	directory := r.URL.Query().Get("directory")
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required parameter: filename")
		return
	}

	asset, err := ah.Assets.GetByPath(directory, filename)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Asset not found")
		} else {
			log.Printf("Error looking up asset %s/%s: %v", directory, filename, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve asset")
		}
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// DirectoryTree serves GET /api/directories: the derived tree of unique
// directories with per-directory asset counts.
func (ah *AssetHandler) DirectoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := database.DirectoryTree(ah.SQLDB)
	if err != nil {
		log.Printf("Error building directory tree: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to build directory tree")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// UpdateAsset serves PUT /api/assets/{asset_id} for the note and favorite
// flag.
func (ah *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "asset_id")
	assetID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid asset ID format")
		return
	}

	var req struct {
		Note     *string `json:"note"`
		Favorite *bool   `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if req.Note != nil {
		if err := ah.Assets.UpdateNote(uint(assetID), *req.Note); err != nil {
			ah.writeUpdateError(w, uint(assetID), err)
			return
		}
	}
	if req.Favorite != nil {
		if err := ah.Assets.SetFavorite(uint(assetID), *req.Favorite); err != nil {
			ah.writeUpdateError(w, uint(assetID), err)
			return
		}
	}

	asset, err := ah.Assets.GetByID(uint(assetID))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Asset updated successfully"})
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (ah *AssetHandler) writeUpdateError(w http.ResponseWriter, assetID uint, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Asset not found")
		return
	}
	log.Printf("Error updating asset %d: %v", assetID, err)
	WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to update asset")
}
