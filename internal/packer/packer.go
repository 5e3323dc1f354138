// Package packer assembles the packaging artifacts the build plan's
// packaging rules invoke this tool for: the info.properties file, the
// update pack, and the binary-redistribution pack.
//
// The staging-tree hash covers the sorted directory structure, the
// contents of regular files, and the targets of symlinks. Symlinks are
// never followed, so the hash of a staged tree is stable across hosts.
package packer

import (
	"archive/tar"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/vk/mkplan/internal/paths"
)

// ComputeStagingMd5 hashes a staged tree: the sorted relative path
// listing, then each regular file's contents in sorted order, then each
// symlink's target in sorted order.
func ComputeStagingMd5(stagingDir string) (string, error) {
	var pathList []string
	err := filepath.WalkDir(stagingDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(stagingDir, p)
		if err != nil {
			return err
		}
		pathList = append(pathList, rel)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking staging tree: %w", err)
	}
	sort.Strings(pathList)

	hash := md5.New()
	for _, rel := range pathList {
		io.WriteString(hash, rel)
		hash.Write([]byte{0})
	}
	for _, rel := range pathList {
		full := filepath.Join(stagingDir, rel)
		info, err := os.Lstat(full)
		if err != nil {
			return "", err
		}
		switch {
		case info.Mode().IsRegular():
			f, err := os.Open(full)
			if err != nil {
				return "", err
			}
			_, err = io.Copy(hash, f)
			f.Close()
			if err != nil {
				return "", err
			}
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return "", err
			}
			io.WriteString(hash, target)
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// InfoProperties is the metadata stamped into every packaged app.
type InfoProperties struct {
	Name             string
	Md5              string
	Version          string
	FrameworkVersion string
}

// WriteInfoProperties hashes the staging tree and writes the
// info.properties file into it. The framework version is read from the
// version file under the framework root; an empty root leaves the field
// blank.
func WriteInfoProperties(stagingDir, name, version, frameworkRoot, outPath string) error {
	md5Sum, err := ComputeStagingMd5(stagingDir)
	if err != nil {
		return err
	}

	frameworkVersion := ""
	if frameworkRoot != "" {
		data, err := os.ReadFile(paths.Combine(frameworkRoot, "version"))
		if err == nil {
			frameworkVersion = strings.TrimSpace(string(data))
		}
	}

	content := fmt.Sprintf("app.name=%s\napp.md5=%s\napp.version=%s\nlegato.version=%s\n",
		name, md5Sum, version, frameworkVersion)
	return os.WriteFile(outPath, []byte(content), 0o644)
}

// updateHeader is the JSON object preceding the payload of an update
// pack. Field order matters to on-target readers, so the struct order is
// part of the format.
type updateHeader struct {
	Command string `json:"command"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Md5     string `json:"md5"`
	Size    int64  `json:"size"`
}

// WriteUpdatePack writes an app update pack: the JSON header followed,
// with no delimiter, by a compressed tar of the staging tree.
func WriteUpdatePack(stagingDir, name, version, outPath string) error {
	md5Sum, err := ComputeStagingMd5(stagingDir)
	if err != nil {
		return err
	}

	payload, err := compressTree(stagingDir)
	if err != nil {
		return err
	}

	header, err := json.Marshal(updateHeader{
		Command: "updateApp",
		Name:    name,
		Version: version,
		Md5:     md5Sum,
		Size:    int64(len(payload)),
	})
	if err != nil {
		return fmt.Errorf("encoding update pack header: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating update pack: %w", err)
	}
	defer out.Close()

	if _, err := out.Write(header); err != nil {
		return err
	}
	if _, err := out.Write(payload); err != nil {
		return err
	}
	return out.Close()
}

// WriteBinPack writes the binary-redistribution pack: the staging tree
// minus the install-time metadata files, plus the referenced interface
// definition files, compressed the same way as the update payload.
// interfacesDir may be empty or absent when the app references no
// interfaces.
func WriteBinPack(stagingDir, interfacesDir, outPath string) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := addTree(tw, stagingDir, "", func(rel string) bool {
		return rel == "info.properties" || rel == "root.cfg"
	})
	if err != nil {
		return err
	}
	if interfacesDir != "" {
		if info, statErr := os.Stat(interfacesDir); statErr == nil && info.IsDir() {
			if err := addTree(tw, interfacesDir, "interfaces/", func(string) bool { return false }); err != nil {
				return err
			}
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return os.WriteFile(outPath, buf.Bytes(), 0o644)
}

func compressTree(root string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := addTree(tw, root, "", func(string) bool { return false }); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addTree appends one directory tree to a tar stream with deterministic
// member order, skipping entries for which skip returns true. prefix
// relocates the tree's members inside the archive.
func addTree(tw *tar.Writer, root, prefix string, skip func(rel string) bool) error {
	var pathList []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." || skip(rel) {
			return nil
		}
		pathList = append(pathList, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking tree: %w", err)
	}
	sort.Strings(pathList)

	for _, rel := range pathList {
		full := filepath.Join(root, rel)
		info, err := os.Lstat(full)
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(full); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = prefix + rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(full)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, f)
			f.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}
