package mongodb

import (
	"context"
	"errors"
	"time"

	"echodao-backend/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reportsCollection = "reports"

// ErrReportNotFound is returned by FindReport for an unknown content id.
var ErrReportNotFound = errors.New("report not found")

// SaveReport stores the report metadata keyed by its content id. Uploading
// the same content twice replaces the previous entry.
func (b Repository) SaveReport(ctx context.Context, report model.Report) error {
	coll := b.collection(reportsCollection)

	stored := storedReport{
		ContentID:   report.ContentID,
		Filename:    report.Filename,
		FileHash:    report.FileHash,
		Summary:     report.Summary,
		TrustScore:  report.TrustScore,
		Credibility: string(report.Credibility),
		SubmittedAt: time.Now().UTC(),
	}

	_, err := coll.ReplaceOne(ctx, bson.M{"_id": report.ContentID}, stored, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.New("failed to save the report: " + err.Error())
	}
	return nil
}

func (b Repository) FindReport(ctx context.Context, contentID string) (model.Report, error) {
	coll := b.collection(reportsCollection)

	var stored storedReport
	err := coll.FindOne(ctx, bson.M{"_id": contentID}).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Report{}, ErrReportNotFound
	}
	if err != nil {
		return model.Report{}, errors.New("failed to find the report: " + err.Error())
	}

	return model.Report{
		Filename:    stored.Filename,
		ContentID:   stored.ContentID,
		FileHash:    stored.FileHash,
		Summary:     stored.Summary,
		TrustScore:  stored.TrustScore,
		Credibility: model.TrustLabel(stored.Credibility),
	}, nil
}
