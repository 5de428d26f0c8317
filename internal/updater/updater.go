// Package updater checks GitHub for newer cribl-bridge releases and can
// replace the running binary in place.
//
// Releases are published by GoReleaser: one archive per OS/arch plus a
// checksums.txt. When the checksum file is present the downloaded archive
// is verified before anything on disk is touched.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	githubRepo   = "HendryAvila/cribl-bridge"
	binaryName   = "cribl-bridge"
	checksumFile = "checksums.txt"

	releaseURL   = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	checkTimeout = 10 * time.Second

	// maxArchiveSize bounds the download read into memory.
	maxArchiveSize = 200 << 20
)

// Overridable in tests.
var (
	releaseEndpoint = releaseURL
	httpClient      = &http.Client{Timeout: checkTimeout}
	executablePath  = os.Executable
	goos, goarch    = runtime.GOOS, runtime.GOARCH
)

// ErrUpToDate is returned by SelfUpdate when no newer release exists.
var ErrUpToDate = errors.New("already at latest version")

// ReleaseInfo holds the relevant fields from a GitHub release.
type ReleaseInfo struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file in a GitHub release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

func (r *ReleaseInfo) asset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// UpdateResult is the outcome of CheckVersion.
type UpdateResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// CheckVersion compares currentVersion with the latest GitHub release.
// The check is best effort: on any failure the result only carries the
// current version and err explains why.
func CheckVersion(ctx context.Context, currentVersion string) (*UpdateResult, error) {
	result := &UpdateResult{CurrentVersion: normalizeVersion(currentVersion)}

	release, err := latestRelease(ctx, currentVersion)
	if err != nil {
		return result, err
	}
	result.LatestVersion = normalizeVersion(release.TagName)
	result.ReleaseURL = release.HTMLURL
	result.UpdateAvailable = isNewer(result.CurrentVersion, result.LatestVersion)
	return result, nil
}

// SelfUpdate downloads the release archive for this OS/arch and replaces
// the running executable. It returns the installed version.
func SelfUpdate(ctx context.Context, currentVersion string) (string, error) {
	release, err := latestRelease(ctx, currentVersion)
	if err != nil {
		return "", err
	}

	latest := normalizeVersion(release.TagName)
	if !isNewer(normalizeVersion(currentVersion), latest) {
		return "", fmt.Errorf("%w (%s)", ErrUpToDate, normalizeVersion(currentVersion))
	}

	assetName := buildAssetName(latest)
	asset, ok := release.asset(assetName)
	if !ok {
		return "", fmt.Errorf("no release asset found for %s/%s (looking for %s)", goos, goarch, assetName)
	}

	archive, err := download(ctx, asset.BrowserDownloadURL, currentVersion)
	if err != nil {
		return "", fmt.Errorf("downloading release: %w", err)
	}

	if sums, ok := release.asset(checksumFile); ok {
		list, err := download(ctx, sums.BrowserDownloadURL, currentVersion)
		if err != nil {
			return "", fmt.Errorf("downloading checksums: %w", err)
		}
		if err := verifyChecksum(archive, assetName, list); err != nil {
			return "", err
		}
	}

	binary, err := extractBinary(archive, assetName)
	if err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}

	execPath, err := executablePath()
	if err != nil {
		return "", fmt.Errorf("finding current executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks: %w", err)
	}
	if err := replaceBinary(execPath, binary); err != nil {
		return "", err
	}
	return latest, nil
}

func latestRelease(ctx context.Context, currentVersion string) (*ReleaseInfo, error) {
	req, err := newRequest(ctx, releaseEndpoint, currentVersion)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("parsing release info: %w", err)
	}
	return &release, nil
}

func download(ctx context.Context, url, currentVersion string) ([]byte, error) {
	req, err := newRequest(ctx, url, currentVersion)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxArchiveSize {
		return nil, fmt.Errorf("download exceeds %d bytes", maxArchiveSize)
	}
	return data, nil
}

func newRequest(ctx context.Context, url, currentVersion string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", binaryName+"/"+currentVersion)
	return req, nil
}

// verifyChecksum checks archive against its line in a GoReleaser
// checksums.txt ("<sha256>  <file name>").
func verifyChecksum(archive []byte, assetName string, list []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(list))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 || fields[1] != assetName {
			continue
		}
		sum := sha256.Sum256(archive)
		if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, fields[0]) {
			return fmt.Errorf("checksum mismatch for %s: got %s, want %s", assetName, got, fields[0])
		}
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading checksums: %w", err)
	}
	return fmt.Errorf("%s not listed in %s", assetName, checksumFile)
}

// replaceBinary writes data next to execPath and renames it into place.
// A running binary cannot be overwritten on Windows, so it is moved aside
// to <exe>.old first.
func replaceBinary(execPath string, data []byte) error {
	tmpPath := execPath + ".new"
	if err := os.WriteFile(tmpPath, data, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}

	if goos == "windows" {
		oldPath := execPath + ".old"
		_ = os.Remove(oldPath)
		if err := os.Rename(execPath, oldPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("backing up current binary: %w", err)
		}
	}

	if err := os.Rename(tmpPath, execPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

func extractBinary(archive []byte, assetName string) ([]byte, error) {
	if strings.HasSuffix(assetName, ".zip") {
		return extractFromZip(archive)
	}
	return extractFromTarGz(archive)
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == binaryName || base == binaryName+".exe"
}

func extractFromTarGz(archive []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !isBinary(header.Name) {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading binary from tar: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

func extractFromZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading binary from zip: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

// buildAssetName matches the GoReleaser name_template.
func buildAssetName(version string) string {
	ext := "tar.gz"
	if goos == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryName, version, goos, goarch, ext)
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer reports whether latest is a higher MAJOR.MINOR.PATCH than
// current. Pre-release and build suffixes are ignored. "dev" builds never
// report an update.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := versionParts(current), versionParts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var parts [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		parts[i] = n
	}
	return parts
}
