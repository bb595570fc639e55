package nuts

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultURL is the GISCO NUTS 2021 1:1 million GeoJSON in EPSG:4326.
const DefaultURL = "https://gisco-services.ec.europa.eu/distribution/v2/nuts/geojson/NUTS_RG_01M_2021_4326.geojson"

// Download fetches a GISCO distribution into destDir and returns the path of
// the dataset file. ZIP archives are extracted. Existing non-empty downloads
// are reused.
func Download(ctx context.Context, url, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "nuts.download"),
		zap.String("url", url),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "nuts: create dest dir")
	}

	parts := strings.Split(strings.SplitN(url, "?", 2)[0], "/")
	name := parts[len(parts)-1]
	if name == "" {
		return "", eris.Errorf("nuts: cannot derive file name from %s", url)
	}
	dest := filepath.Join(destDir, name)

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Debug("file already exists, skipping download", zap.String("path", dest))
	} else {
		log.Info("downloading NUTS dataset")
		if err := downloadFile(ctx, url, dest); err != nil {
			_ = os.Remove(dest)
			return "", eris.Wrap(err, "nuts: download dataset")
		}
	}

	if strings.EqualFold(filepath.Ext(dest), ".zip") {
		dataset, err := unpack(dest)
		if err != nil {
			return "", eris.Wrap(err, "nuts: unpack dataset")
		}
		return dataset, nil
	}
	return dest, nil
}

// downloadFile downloads a URL to a local file.
func downloadFile(ctx context.Context, url, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp.Body); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}

// extractZIP extracts a ZIP archive flat into the destination directory.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}
	return nil
}

// findFile finds the first file in dir whose name starts with prefix and
// ends with ext, both matched case-insensitively.
func findFile(dir, prefix, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(prefix)) {
			continue
		}
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", eris.Errorf("no %s%s file found in %s", prefix, ext, dir)
}
