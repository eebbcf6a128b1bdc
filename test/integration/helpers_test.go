//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/reviewgraph/internal/app"
	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/fetch"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

// backends returns a config per reachable graph database. The test is skipped when none is configured.
func backends(t *testing.T) map[string]*config.Config {
	t.Helper()
	_ = godotenv.Load("../../.env")

	out := make(map[string]*config.Config)
	if url := os.Getenv("ARANGO_URL"); url != "" {
		cfg := config.Default()
		cfg.ApplyEnv()
		cfg.Graph.Backend = "arango"
		out["arango"] = cfg
	}
	if uri := os.Getenv("MEMGRAPH_URI"); uri != "" {
		cfg := config.Default()
		cfg.ApplyEnv()
		cfg.Graph.Backend = "memgraph"
		out["memgraph"] = cfg
	}
	if len(out) == 0 {
		t.Skip("Skipping integration test: neither ARANGO_URL nor MEMGRAPH_URI set")
	}
	return out
}

// openStore connects, ensures the schema and removes everything tagged with tag when the test ends.
func openStore(t *testing.T, cfg *config.Config, tag string) store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := app.OpenStore(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, st.EnsureSchema(ctx))

	t.Cleanup(func() {
		cleanup(t, st, tag)
		_ = st.Close(context.Background())
	})
	return st
}

func cleanup(t *testing.T, st store.Store, tag string) {
	ctx := context.Background()
	var queries []string
	if st.QueryLanguage() == "Cypher" {
		queries = append(queries, fmt.Sprintf(`MATCH (n) WHERE n.key CONTAINS "%s" DETACH DELETE n`, tag))
	} else {
		for _, c := range model.EdgeCollections {
			queries = append(queries, fmt.Sprintf(`FOR e IN %s FILTER CONTAINS(e._from, "%s") OR CONTAINS(e._to, "%s") REMOVE e IN %s`, c.Name, tag, tag, c.Name))
		}
		for _, c := range model.NodeCollections {
			queries = append(queries, fmt.Sprintf(`FOR d IN %s FILTER CONTAINS(d._key, "%s") REMOVE d IN %s`, c.Name, tag, c.Name))
		}
	}
	for _, q := range queries {
		if _, err := st.RawQuery(ctx, q); err != nil {
			t.Logf("cleanup failed: %v", err)
		}
	}
	t.Logf("Cleaned up test tag: %s", tag)
}

// newTag returns an uppercase marker usable inside ASINs, user ids and category names.
func newTag() string {
	return "T" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}

// asin builds a ten character product id carrying tag.
func asin(tag string, n int) string {
	return fmt.Sprintf("%s%03d", tag, n)
}

// LocalFetcher serves generated jsonl files instead of downloading.
type LocalFetcher struct {
	Dir      string
	Reviews  []string
	Metadata []string
}

func (f *LocalFetcher) FetchCategory(ctx context.Context, category, reviewURL string) fetch.Files {
	return fetch.Files{
		Reviews:  f.write(category+".jsonl", f.Reviews),
		Metadata: f.write("meta_"+category+".jsonl", f.Metadata),
	}
}

func (f *LocalFetcher) write(name string, lines []string) string {
	path := filepath.Join(f.Dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return ""
	}
	return path
}

// dataset builds a small category: three products, two of which share reviewers.
func dataset(t *testing.T, tag string) (*LocalFetcher, string) {
	category := "ITest_" + tag
	meta := []string{
		fmt.Sprintf(`{"parent_asin":"%s","title":"Trail Shoe","main_category":"%s","price":"59.99","average_rating":4.5,"rating_number":120,"categories":["Shoes","Trail"]}`, asin(tag, 1), category),
		fmt.Sprintf(`{"parent_asin":"%s","title":"Trail Sock","main_category":"%s","price":"9.99","average_rating":4.1,"rating_number":40}`, asin(tag, 2), category),
		fmt.Sprintf(`{"parent_asin":"%s","title":"Road Shoe","main_category":"%s","price":"64.99","average_rating":3.2,"rating_number":8}`, asin(tag, 3), category),
	}
	var reviews []string
	for i, r := range []struct {
		product int
		user    string
		rating  int
		votes   int
	}{
		{1, "A", 5, 7}, {1, "B", 4, 2}, {1, "C", 2, 0},
		{2, "A", 5, 1}, {2, "B", 4, 0},
		{3, "C", 3, 0},
	} {
		reviews = append(reviews, fmt.Sprintf(
			`{"asin":"%[1]s","parent_asin":"%[1]s","user_id":"%[2]s%[3]s","rating":%[4]d,"title":"review %[5]d","text":"text %[5]d","timestamp":%[6]d,"helpful_vote":%[7]d,"verified_purchase":true}`,
			asin(tag, r.product), r.user, tag, r.rating, i, 1700000000000+i, r.votes))
	}
	return &LocalFetcher{Dir: t.TempDir(), Reviews: reviews, Metadata: meta}, category
}
