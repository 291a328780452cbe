// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/utility/kar"
)

var (
	author   = flag.String("author", currentUserName(), "Set the author of the package when compressing")
	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the archive given")
	compress = flag.String("c", "", "Compress the given file/folder")
	dstFile  = flag.String("f", "out.kar", "Destination file, or directory when extracting")
	silent   = flag.Bool("s", false, "Silent")
)

var errExists = errors.New("destination file exists, will not overwrite")

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	var err error
	switch {
	case *extract != "" && *compress != "":
		err = errors.New("only one operation at a time")
	case *extract != "":
		err = extractFiles(*extract, *dstFile)
	case *compress != "":
		err = compressFiles(*compress, *dstFile, kar.Header{
			Author:      *author,
			DateCreated: time.Now().Unix(),
			Version:     *version,
		})
	default:
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.WithError(err).Error("kar failed")
		os.Exit(1)
	}
}

func compressFiles(src, dst string, header kar.Header) error {
	if _, err := os.Stat(dst); err == nil {
		return errExists
	}

	var files []string
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	builder, err := kar.NewBuilder(header)
	if err != nil {
		return err
	}
	defer builder.Close()

	for _, path := range files {
		name, err := filepath.Rel(src, path)
		if err != nil || name == "." {
			name = filepath.Base(path)
		}
		if err := addFile(builder, filepath.ToSlash(name), path); err != nil {
			return err
		}
		log.WithField("file", name).Info("added")
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	n, err := builder.WriteTo(out)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"archive": dst, "files": len(files), "size": n}).Info("archive written")
	return out.Close()
}

func addFile(builder *kar.Builder, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return builder.Add(name, f)
}

func extractFiles(src, dstDir string) error {
	archive, err := kar.OpenFile(src)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, e := range archive.Files() {
		target := filepath.Join(dstDir, filepath.FromSlash(e.Name))
		if rel, err := filepath.Rel(dstDir, target); err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("%w: entry %q escapes %s", kar.ErrFileFormat, e.Name, dstDir)
		}
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%w: %s", errExists, target)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(archive, e.Name, target); err != nil {
			return err
		}
		log.WithField("file", e.Name).Info("extracted")
	}
	return nil
}

func extractFile(archive *kar.Archive, name, target string) error {
	r, err := archive.Open(name)
	if err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return f.Close()
}
