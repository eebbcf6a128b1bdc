package arango

const (
	existingKeysQuery = `
		FOR d IN @@coll
			FILTER d._key IN @keys
			RETURN d._key`

	countQuery = `RETURN LENGTH(@@coll)`

	missingProductEmbeddingsQuery = `
		FOR p IN Products
			FILTER (@category == "" OR p.main_category == @category)
			FILTER !HAS(p, "embedding") AND p._key NOT IN @exclude
			LIMIT @limit
			RETURN {_key: p._key, title: p.title, features_text: p.features_text, description: p.description}`

	missingReviewEmbeddingsQuery = `
		FOR r IN Reviews
			FILTER !HAS(r, "embedding") AND r._key NOT IN @exclude
			FILTER @category == "" OR LENGTH(
				FOR p IN 1..1 INBOUND r HasReview
					FILTER p.main_category == @category
					LIMIT 1
					RETURN 1
			) > 0
			LIMIT @limit
			RETURN {_key: r._key, title: r.title, text: r.text}`

	setEmbeddingsQuery = `
		FOR row IN @rows
			UPDATE {_key: row.key} WITH {embedding: row.embedding} IN @@coll`

	productByKeyQuery = `
		FOR p IN Products
			FILTER p._key == @key
			LIMIT 1
			RETURN UNSET(p, "embedding")`

	reviewsForProductQuery = `
		FOR r IN Reviews
			FILTER r.asin == @key OR r.parent_asin == @key
			SORT r.helpful_votes DESC
			LIMIT @limit
			RETURN UNSET(r, "embedding")`

	ratingDistributionQuery = `
		FOR r IN Reviews
			FILTER r.asin == @key OR r.parent_asin == @key
			COLLECT rating = FLOOR(r.rating) WITH COUNT INTO count
			SORT rating DESC
			RETURN {rating, count}`

	similarProductsQuery = `
		FOR p IN Products
			FILTER HAS(p, "embedding")
			LET score = COSINE_SIMILARITY(p.embedding, @vector)
			FILTER score > @threshold
			SORT score DESC
			LIMIT @limit
			RETURN {product: UNSET(p, "embedding"), score}`

	variantsQuery = `
		FOR v IN 1..1 ANY CONCAT("Products/", @key) VariantOf
			RETURN DISTINCT UNSET(v, "embedding")`

	nearestPricedQuery = `
		LET p = DOCUMENT("Products", @key)
		FOR o IN Products
			FILTER o.main_category == p.main_category AND o._key != p._key
			SORT ABS(o.price - p.price) ASC
			LIMIT @limit
			RETURN UNSET(o, "embedding")`

	popularProductsQuery = `
		FOR p IN Products
			FILTER @category == "" OR CONTAINS(LOWER(p.main_category), LOWER(@category))
			SORT p.rating_count DESC
			LIMIT @limit
			RETURN UNSET(p, "embedding")`

	bestRatedProductsQuery = `
		FOR p IN Products
			FILTER @category == "" OR CONTAINS(LOWER(p.main_category), LOWER(@category))
			FILTER p.rating_count >= @min_reviews
			SORT p.average_rating DESC, p.rating_count DESC
			LIMIT @limit
			RETURN UNSET(p, "embedding")`

	coReviewPairsQuery = `
		FOR u IN Users
			LET products = UNIQUE(
				FOR r IN 1..1 INBOUND u WrittenBy
					FOR p IN 1..1 INBOUND r HasReview
						RETURN p._key
			)
			FILTER LENGTH(products) > 1
			FOR a IN products
				FOR b IN products
					FILTER a < b
					COLLECT pa = a, pb = b WITH COUNT INTO weight
					SORT weight DESC
					LIMIT @limit
					RETURN {a: pa, b: pb, weight}`
)

var persistentIndexes = map[string][][]string{
	"Products":   {{"main_category"}, {"parent_asin"}, {"rating_count"}},
	"Reviews":    {{"asin"}, {"parent_asin"}, {"user_id"}, {"timestamp"}, {"rating"}},
	"Categories": {{"level"}},
}
