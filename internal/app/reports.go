package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"echodao-backend/internal/hashing"
	"echodao-backend/internal/model"
	"echodao-backend/internal/storage/ipfs"

	"go.uber.org/zap"
)

var textExtensions = map[string]bool{".txt": true, ".csv": true, ".md": true}

// SubmitReport stores the file in the content store and rates its text.
// Binary uploads are stored and hashed but rated as empty text.
func (a *App) SubmitReport(ctx context.Context, filename string, data []byte) (model.Report, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return model.Report{}, invalidInput(errors.New("filename is missing"))
	}
	if len(data) == 0 {
		return model.Report{}, invalidInput(errors.New("file is empty"))
	}

	fileHash := hashing.Calculate(data)

	contentID, err := a.content.Put(ctx, data, filename)
	if err != nil {
		return model.Report{}, upstream("content store", err)
	}

	text := reportText(filename, data)
	trust := a.scorer.Score(text)

	report := model.Report{
		Filename:    filename,
		ContentID:   contentID,
		FileHash:    fileHash,
		Summary:     a.summarizer.Summarize(text),
		TrustScore:  trust.Score,
		Credibility: trust.Label,
	}

	if a.archive != nil {
		if err := a.archive.SaveReport(ctx, report); err != nil {
			a.logger.Error(err.Error(), zap.String("contentID", contentID))
		}
	}

	a.logger.Info("report submitted", zap.String("filename", filename), zap.String("contentID", contentID), zap.Int("trustScore", trust.Score))
	return report, nil
}

func reportText(filename string, data []byte) string {
	if !textExtensions[strings.ToLower(filepath.Ext(filename))] || !utf8.Valid(data) {
		return ""
	}
	return string(data)
}

// VerifyReportText rates plain text without storing anything.
func (a *App) VerifyReportText(text string) (string, model.TrustScore, error) {
	if strings.TrimSpace(text) == "" {
		return "", model.TrustScore{}, invalidInput(errors.New("content is empty"))
	}
	return a.summarizer.Summarize(text), a.scorer.Score(text), nil
}

// VerifyIntegrity fetches the content and compares its digest with the
// expected hash. An empty expected hash falls back to the hash archived at
// submission time.
func (a *App) VerifyIntegrity(ctx context.Context, contentID, expectedHash string) (model.IntegrityCheck, error) {
	contentID = strings.TrimSpace(contentID)
	expectedHash = strings.ToLower(strings.TrimSpace(expectedHash))
	if contentID == "" {
		return model.IntegrityCheck{}, invalidInput(errors.New("ipfs_hash is missing"))
	}

	if expectedHash == "" {
		if a.archive == nil {
			return model.IntegrityCheck{}, invalidInput(errors.New("expected_hash is missing"))
		}
		stored, err := a.archive.FindReport(ctx, contentID)
		if err != nil {
			return model.IntegrityCheck{}, invalidInput(errors.New("expected_hash is missing and no archived report was found: " + err.Error()))
		}
		expectedHash = stored.FileHash
	}

	data, err := a.content.Get(ctx, contentID)
	if errors.Is(err, ipfs.ErrInvalidContentID) {
		return model.IntegrityCheck{}, invalidInput(err)
	}
	if err != nil {
		return model.IntegrityCheck{}, upstream("content store", err)
	}

	check := model.IntegrityCheck{
		ContentID:    contentID,
		ExpectedHash: expectedHash,
		ActualHash:   hashing.Calculate(data),
	}
	check.Valid = hashing.Verify(data, expectedHash)

	if !check.Valid {
		a.logger.Info("integrity mismatch", zap.String("contentID", contentID))
	}
	return check, nil
}
