package driver

import "fmt"

var IndexQueries = []string{
	"CREATE INDEX ON :Product(key);",
	"CREATE INDEX ON :Review(key);",
	"CREATE INDEX ON :User(key);",
	"CREATE INDEX ON :Category(key);",

	"CREATE INDEX ON :Product(main_category);",
	"CREATE INDEX ON :Product(parent_asin);",
	"CREATE INDEX ON :Product(rating_count);",
	"CREATE INDEX ON :Review(asin);",
	"CREATE INDEX ON :Review(parent_asin);",
	"CREATE INDEX ON :Review(user_id);",
	"CREATE INDEX ON :Category(level);",
}

// Labels and relationship types cannot be parameters, so the helpers below
// interpolate them. Callers pass only names from model.Collection.

func UpsertNodesQuery(label string) string {
	return fmt.Sprintf(`
		UNWIND $rows AS row
		OPTIONAL MATCH (existing:%[1]s {key: row.key})
		WITH row, existing IS NULL AS created
		MERGE (n:%[1]s {key: row.key})
		SET n += row.props
		RETURN sum(CASE WHEN created THEN 1 ELSE 0 END) AS created, count(n) AS total
	`, label)
}

func UpsertEdgesQuery(fromLabel, toLabel, relType string) string {
	return fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (a:%s {key: row.from})
		MATCH (b:%s {key: row.to})
		OPTIONAL MATCH (a)-[existing:%[3]s {key: row.key}]->(b)
		WITH a, b, row, existing IS NULL AS created
		MERGE (a)-[r:%[3]s {key: row.key}]->(b)
		RETURN sum(CASE WHEN created THEN 1 ELSE 0 END) AS created, count(r) AS total
	`, fromLabel, toLabel, relType)
}

func ExistingKeysQuery(label string) string {
	return fmt.Sprintf(`MATCH (n:%s) WHERE n.key IN $keys RETURN n.key AS key`, label)
}

func CountNodesQuery(label string) string {
	return fmt.Sprintf(`MATCH (n:%s) RETURN count(n) AS count`, label)
}

func CountEdgesQuery(relType string) string {
	return fmt.Sprintf(`MATCH ()-[r:%s]->() RETURN count(r) AS count`, relType)
}

func SetEmbeddingsQuery(label string) string {
	return fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (n:%s {key: row.key})
		SET n.embedding = row.embedding
	`, label)
}

const (
	MissingProductEmbeddingsQuery = `
		MATCH (p:Product)
		WHERE p.embedding IS NULL
		  AND ($category = "" OR p.main_category = $category)
		  AND NOT p.key IN $exclude
		RETURN p.key AS key, p.title AS title, p.features_text AS features_text, p.description AS description
		LIMIT $limit
	`

	MissingReviewEmbeddingsQuery = `
		MATCH (r:Review)
		WHERE r.embedding IS NULL AND NOT r.key IN $exclude
		OPTIONAL MATCH (p:Product)-[:HAS_REVIEW]->(r)
		WITH r, collect(p.main_category) AS categories
		WHERE $category = "" OR $category IN categories
		RETURN r.key AS key, r.title AS title, r.text AS text
		LIMIT $limit
	`

	GetProductQuery = `
		MATCH (p:Product {key: $key})
		RETURN properties(p) AS props
	`

	GetReviewsForProductQuery = `
		MATCH (r:Review)
		WHERE r.asin = $key OR r.parent_asin = $key
		WITH r ORDER BY r.helpful_votes DESC LIMIT $limit
		RETURN properties(r) AS props
	`

	RatingDistributionQuery = `
		MATCH (r:Review)
		WHERE r.asin = $key OR r.parent_asin = $key
		WITH toInteger(r.rating) AS rating, count(r) AS count
		RETURN rating, count
		ORDER BY rating DESC
	`

	ProductEmbeddingsQuery = `
		MATCH (p:Product)
		WHERE p.embedding IS NOT NULL
		RETURN properties(p) AS props
	`

	GetVariantsQuery = `
		MATCH (p:Product {key: $key})-[:VARIANT_OF]-(v:Product)
		WITH DISTINCT v
		RETURN properties(v) AS props
	`

	GetNearestPricedQuery = `
		MATCH (p:Product {key: $key})
		MATCH (o:Product)
		WHERE o.main_category = p.main_category AND o.key <> p.key
		WITH o, abs(o.price - p.price) AS distance
		ORDER BY distance ASC LIMIT $limit
		RETURN properties(o) AS props
	`

	PopularProductsQuery = `
		MATCH (p:Product)
		WHERE $category = "" OR toLower(p.main_category) CONTAINS toLower($category)
		WITH p ORDER BY p.rating_count DESC LIMIT $limit
		RETURN properties(p) AS props
	`

	BestRatedProductsQuery = `
		MATCH (p:Product)
		WHERE ($category = "" OR toLower(p.main_category) CONTAINS toLower($category))
		  AND p.rating_count >= $min_reviews
		WITH p ORDER BY p.average_rating DESC, p.rating_count DESC LIMIT $limit
		RETURN properties(p) AS props
	`

	CoReviewPairsQuery = `
		MATCH (a:Product)-[:HAS_REVIEW]->(:Review)-[:WRITTEN_BY]->(u:User)<-[:WRITTEN_BY]-(:Review)<-[:HAS_REVIEW]-(b:Product)
		WHERE a.key < b.key
		RETURN a.key AS a, b.key AS b, count(DISTINCT u) AS weight
		ORDER BY weight DESC
		LIMIT $limit
	`
)
