package scorm

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrManifestMissing   = errors.New("imsmanifest.xml not found in package")
	ErrManifestMalformed = errors.New("manifest has no organization item")
)

const (
	defaultScormVersion = "1.2"
	defaultLaunchURL    = "index_lms.html"
	defaultTitle        = "SCORM Course"
	manifestFileName    = "imsmanifest.xml"
)

// Manifest is the parsed descriptor of an extracted SCORM package.
type Manifest struct {
	PackagePath        string
	ManifestPath       string
	ManifestIdentifier string
	ManifestTitle      string
	PackageID          string
	LaunchURL          string
	Title              string
	Description        string
	ScormVersion       string
}

// imsmanifest.xml, namespace-insensitive. Local element names are stable
// across the imscp/adlcp/imsmd schema revisions even when prefixes differ.
type manifestXML struct {
	Metadata struct {
		SchemaVersion string `xml:"schemaversion"`
		LOM           struct {
			General struct {
				Title struct {
					LangString string `xml:"langstring"`
				} `xml:"title"`
			} `xml:"general"`
		} `xml:"lom"`
	} `xml:"metadata"`
	Organizations struct {
		Organizations []struct {
			Items []struct {
				IdentifierRef string `xml:"identifierref,attr"`
			} `xml:"item"`
		} `xml:"organization"`
	} `xml:"organizations"`
	Resources struct {
		Resources []struct {
			ScormType string `xml:"scormtype,attr"`
			Href      string `xml:"href,attr"`
		} `xml:"resource"`
	} `xml:"resources"`
}

// ParsePackage extracts the archive into destDir and parses the manifest at
// the package root. On success the extracted files are left in place; the
// caller owns cleanup when it decides not to keep the package (duplicate
// manifest identifier, failed registration).
func ParsePackage(archivePath, destDir, packageID, title, description string) (*Manifest, error) {
	if err := extractArchive(archivePath, destDir); err != nil {
		return nil, fmt.Errorf("extract package: %w", err)
	}

	manifestPath := filepath.Join(destDir, manifestFileName)
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, ErrManifestMissing
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var doc manifestXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m := &Manifest{
		PackagePath:  destDir,
		ManifestPath: manifestPath,
		PackageID:    packageID,
		Title:        title,
		Description:  description,
	}

	m.ScormVersion = strings.TrimSpace(doc.Metadata.SchemaVersion)
	if m.ScormVersion == "" {
		m.ScormVersion = defaultScormVersion
	}

	// Launch entry point is the resource flagged as the shareable content
	// object. Packages without one get the conventional filename; that is a
	// policy fallback, not something the format guarantees.
	m.LaunchURL = defaultLaunchURL
	for _, res := range doc.Resources.Resources {
		if strings.EqualFold(res.ScormType, "sco") {
			if res.Href != "" {
				m.LaunchURL = res.Href
			}
			break
		}
	}

	m.ManifestTitle = strings.TrimSpace(doc.Metadata.LOM.General.Title.LangString)
	if m.ManifestTitle == "" {
		m.ManifestTitle = defaultTitle
	}

	if len(doc.Organizations.Organizations) == 0 ||
		len(doc.Organizations.Organizations[0].Items) == 0 {
		return nil, ErrManifestMalformed
	}
	m.ManifestIdentifier = doc.Organizations.Organizations[0].Items[0].IdentifierRef

	return m, nil
}

func extractArchive(archivePath, destDir string) error {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	for _, f := range rc.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := writeZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// safeJoin rejects entries that would escape the extraction root.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal path in archive: %s", name)
	}
	return target, nil
}
