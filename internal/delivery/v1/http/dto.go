package http

import (
	"net/url"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
)

const imagesPath = "/api/v1/images/"

type ReferenceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ImageKey    string    `json:"image_key"`
	ImageURL    string    `json:"image_url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	AddedAt     time.Time `json:"added_at"`
}

type ReferencesResponse struct {
	ModelVersion string              `json:"model_version"`
	Count        int                 `json:"count"`
	References   []ReferenceResponse `json:"references"`
}

type VerifyResponse struct {
	VerificationID string            `json:"verification_id"`
	IsMatch        bool              `json:"is_match"`
	Score          float64           `json:"score"`
	Threshold      float64           `json:"threshold"`
	ModelVersion   string            `json:"model_version"`
	ReferenceCount int               `json:"reference_count"`
	QueryImageURL  string            `json:"query_image_url,omitempty"`
	BestMatch      ReferenceResponse `json:"best_match"`
}

type VerificationResponse struct {
	ID                string    `json:"id"`
	IsMatch           bool      `json:"is_match"`
	Score             float64   `json:"score"`
	Threshold         float64   `json:"threshold"`
	BestMatchID       string    `json:"best_match_id"`
	BestMatchImageURL string    `json:"best_match_image_url"`
	QueryImageURL     string    `json:"query_image_url,omitempty"`
	ModelVersion      string    `json:"model_version"`
	ReferenceCount    int       `json:"reference_count"`
	CreatedAt         time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
}

func imageURL(key string) string {
	if key == "" {
		return ""
	}
	return imagesPath + (&url.URL{Path: key}).EscapedPath()
}

func toReferenceResponse(ref domain.Reference) ReferenceResponse {
	return ReferenceResponse{
		ID:          ref.ID,
		Name:        ref.Name,
		ImageKey:    ref.Image.ObjectKey,
		ImageURL:    imageURL(ref.Image.ObjectKey),
		ContentType: ref.Image.ContentType,
		Size:        ref.Image.Size,
		AddedAt:     ref.AddedAt,
	}
}

func toReferencesResponse(modelVersion string, refs []domain.Reference) ReferencesResponse {
	out := make([]ReferenceResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, toReferenceResponse(ref))
	}

	return ReferencesResponse{
		ModelVersion: modelVersion,
		Count:        len(out),
		References:   out,
	}
}

func toVerifyResponse(res *usecase.VerifyRes) VerifyResponse {
	return VerifyResponse{
		VerificationID: res.VerificationID,
		IsMatch:        res.IsMatch,
		Score:          res.Score,
		Threshold:      res.Threshold,
		ModelVersion:   res.ModelVersion,
		ReferenceCount: res.ReferenceCount,
		QueryImageURL:  imageURL(res.QueryImage.ObjectKey),
		BestMatch:      toReferenceResponse(res.BestMatch),
	}
}

func toVerificationResponses(items []domain.Verification) []VerificationResponse {
	out := make([]VerificationResponse, 0, len(items))
	for _, v := range items {
		out = append(out, VerificationResponse{
			ID:                v.ID,
			IsMatch:           v.IsMatch,
			Score:             v.Score,
			Threshold:         v.Threshold,
			BestMatchID:       v.BestMatchID,
			BestMatchImageURL: imageURL(v.BestMatchImage.ObjectKey),
			QueryImageURL:     imageURL(v.QueryImage.ObjectKey),
			ModelVersion:      v.ModelVersion,
			ReferenceCount:    v.ReferenceCount,
			CreatedAt:         v.CreatedAt,
		})
	}

	return out
}
