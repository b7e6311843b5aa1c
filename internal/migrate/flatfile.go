package migrate

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
)

// migrateFlatFile absorbs the legacy flat-file priority export, if one
// exists on disk. The file is a headerless "bandName,level" line list
// written by very old installs, before the legacy engine existed.
//
// Flat-file rows never carry a write time, so they are stored with a
// zero timestamp and only where no priority exists yet; a record that
// came through the legacy store is always the fresher source.
func (p *Pipeline) migrateFlatFile(ctx context.Context) error {
	if p.flatFilePath == "" {
		return nil
	}

	f, err := os.Open(p.flatFilePath)
	if os.IsNotExist(err) {
		p.logger.Printf("No flat-file export at %s; nothing to absorb", p.flatFilePath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open flat-file export: %w", err)
	}
	defer f.Close()

	var written, skipped int
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		band, levelToken, ok := strings.Cut(line, ",")
		if !ok {
			p.logger.Printf("Skipping malformed flat-file line %d: %q", lineNum, line)
			skipped++
			continue
		}
		band = strings.TrimSpace(band)
		level, err := schema.ParsePriorityLevel(strings.TrimSpace(levelToken))
		if err != nil || band == "" {
			p.logger.Printf("Skipping malformed flat-file line %d: %q", lineNum, line)
			skipped++
			continue
		}

		existing, err := p.store.GetPriority(ctx, band, p.year)
		if err != nil {
			return err
		}
		if existing.Level != schema.PriorityUnset {
			skipped++
			continue
		}

		rec := schema.PriorityRecord{
			Band:  band,
			Year:  p.year,
			Level: level,
		}
		if err := p.store.SetPriority(ctx, rec); err != nil {
			return err
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read flat-file export: %w", err)
	}

	p.logger.Printf("Flat-file migration complete: written=%d skipped=%d", written, skipped)
	return nil
}
