package mapper

import (
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/core/keys"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/records"
)

// MapReviews turns review records into reviews. Records without asin or user_id
// are skipped and counted.
func MapReviews(recs []records.Record) ([]model.Review, int) {
	reviews := make([]model.Review, 0, len(recs))
	skipped := 0

	for _, rec := range recs {
		rawASIN := asString(rec["asin"])
		rawUser := asString(rec["user_id"])
		asin := keys.Sanitize(rawASIN, false)
		user := keys.Sanitize(rawUser, false)
		if asin == "" || user == "" {
			skipped++
			continue
		}

		ts := asInt64(rec["sort_timestamp"])
		if ts == 0 {
			ts = asInt64(rec["timestamp"])
		}

		reviews = append(reviews, model.Review{
			Key:              keys.Sanitize(fmt.Sprintf("%s_%s_%d", asin, user, ts), false),
			ASIN:             asin,
			ParentASIN:       keys.Sanitize(asString(rec["parent_asin"]), false),
			UserID:           user,
			OriginalASIN:     rawASIN,
			OriginalUserID:   rawUser,
			Rating:           asFloat(rec["rating"]),
			Title:            strings.TrimSpace(asString(rec["title"])),
			Text:             strings.TrimSpace(asString(rec["text"])),
			Timestamp:        ts,
			HelpfulVotes:     asInt(firstPresent(rec, "helpful_vote", "helpful_votes")),
			VerifiedPurchase: asBool(rec["verified_purchase"]),
			Images:           imageURLs(rec["images"], "large_image_url", 0),
		})
	}

	return reviews, skipped
}

// ExtractUsers derives one user per author, counting that author's reviews in this batch.
func ExtractUsers(reviews []model.Review) []model.User {
	var out []model.User
	index := make(map[string]int)

	for _, r := range reviews {
		if i, ok := index[r.UserID]; ok {
			out[i].ReviewCount++
			continue
		}
		index[r.UserID] = len(out)
		out = append(out, model.User{Key: r.UserID, OriginalID: r.OriginalUserID, ReviewCount: 1})
	}
	return out
}

func firstPresent(rec records.Record, fields ...string) any {
	for _, f := range fields {
		if v, ok := rec[f]; ok && v != nil {
			return v
		}
	}
	return nil
}
