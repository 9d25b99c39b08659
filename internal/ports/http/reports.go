package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// max file size is 10MB
const maxReportSize = 10 << 20

type reportResponse struct {
	Filename    string `json:"filename"`
	IpfsHash    string `json:"ipfs_hash"`
	FileHash    string `json:"file_hash"`
	Summary     string `json:"summary"`
	TrustScore  int    `json:"trust_score"`
	Credibility string `json:"credibility"`
}

type verifyTextRequest struct {
	Content string `json:"content"`
}

type verifyTextResponse struct {
	Summary     string `json:"summary"`
	TrustScore  int    `json:"trust_score"`
	Credibility string `json:"credibility"`
}

type verifyHashRequest struct {
	IpfsHash     string `json:"ipfs_hash"`
	ExpectedHash string `json:"expected_hash"`
}

type verifyHashResponse struct {
	IpfsHash     string `json:"ipfs_hash"`
	ExpectedHash string `json:"expected_hash"`
	ActualHash   string `json:"actual_hash"`
	Valid        bool   `json:"valid"`
}

func (ser server) submitReport(w http.ResponseWriter, r *http.Request) {
	filename, data, err := readReportFile(r)
	if err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}

	ser.logger.Info(fmt.Sprintf("received file: %s, size %v", filename, len(data)))

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	report, err := ser.app.SubmitReport(ctx, filename, data)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, reportResponse{
		Filename:    report.Filename,
		IpfsHash:    report.ContentID,
		FileHash:    report.FileHash,
		Summary:     report.Summary,
		TrustScore:  report.TrustScore,
		Credibility: string(report.Credibility),
	})
}

func readReportFile(r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxReportSize+1<<20)
	if err := r.ParseMultipartForm(maxReportSize); err != nil {
		return "", nil, errors.New("failed to parse the form: " + err.Error())
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.New("failed to get the report file from form: " + err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReportSize+1))
	if err != nil {
		return "", nil, errors.New("failed to read the report file: " + err.Error())
	}
	if len(data) > maxReportSize {
		return "", nil, errors.New("report file is larger than 10MB")
	}

	return header.Filename, data, nil
}

func (ser server) verifyReportAI(w http.ResponseWriter, r *http.Request) {
	var req verifyTextRequest
	if err := decodeJSON(r, &req); err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}

	summary, trust, err := ser.app.VerifyReportText(req.Content)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, verifyTextResponse{
		Summary:     summary,
		TrustScore:  trust.Score,
		Credibility: string(trust.Label),
	})
}

func (ser server) verifyHash(w http.ResponseWriter, r *http.Request) {
	var req verifyHashRequest
	if err := decodeJSON(r, &req); err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	check, err := ser.app.VerifyIntegrity(ctx, req.IpfsHash, req.ExpectedHash)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	if !check.Valid {
		ser.logger.Warn("report integrity mismatch", zap.String("contentID", check.ContentID))
	}

	ser.writeJSON(w, http.StatusOK, verifyHashResponse{
		IpfsHash:     check.ContentID,
		ExpectedHash: check.ExpectedHash,
		ActualHash:   check.ActualHash,
		Valid:        check.Valid,
	})
}
