package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/services/site/storage"
)

var productOrderColumns = map[string]string{
	"sort_order": "p.sort_order",
	"name":       "p.name",
	"price":      "p.price_cents",
	"created_at": "p.created_at",
}

const productSelect = `
SELECT p.id, p.slug, p.category_id, c.slug, c.name, p.name, p.summary, p.description,
       p.price_cents, p.currency, p.thumbnail_path, p.status, p.sort_order,
       p.created_at, p.updated_at
FROM products p
JOIN categories c ON c.id = p.category_id`

func scanProduct(row rowScanner) (storage.Product, error) {
	var p storage.Product
	var createdAt, updatedAt int64
	if err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.CategoryID,
		&p.CategorySlug,
		&p.CategoryName,
		&p.Name,
		&p.Summary,
		&p.Description,
		&p.PriceCents,
		&p.Currency,
		&p.ThumbnailPath,
		&p.Status,
		&p.SortOrder,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Product{}, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// ListCategories returns categories with product counts, in display order.
func (s *Store) ListCategories(ctx context.Context) ([]storage.Category, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT c.id, c.slug, c.name, c.description, c.sort_order, c.created_at, c.updated_at,
       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
FROM categories c
ORDER BY c.sort_order ASC, c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []storage.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func scanCategory(row rowScanner) (storage.Category, error) {
	var c storage.Category
	var createdAt, updatedAt int64
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.SortOrder, &createdAt, &updatedAt, &c.ProductCount); err != nil {
		return storage.Category{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func (s *Store) getCategoryWhere(ctx context.Context, clause string, arg string) (storage.Category, error) {
	if err := s.ready(); err != nil {
		return storage.Category{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT c.id, c.slug, c.name, c.description, c.sort_order, c.created_at, c.updated_at,
       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
FROM categories c
WHERE `+clause, strings.TrimSpace(arg))
	c, err := scanCategory(row)
	if err != nil {
		return storage.Category{}, fmt.Errorf("get category: %w", translateError(err))
	}
	return c, nil
}

// GetCategory returns a category by id.
func (s *Store) GetCategory(ctx context.Context, categoryID string) (storage.Category, error) {
	return s.getCategoryWhere(ctx, "c.id = ?", categoryID)
}

// GetCategoryBySlug returns a category by slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (storage.Category, error) {
	return s.getCategoryWhere(ctx, "c.slug = ?", slug)
}

// PutCategory upserts a category.
func (s *Store) PutCategory(ctx context.Context, category storage.Category) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO categories (id, slug, name, description, sort_order, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    slug = excluded.slug,
    name = excluded.name,
    description = excluded.description,
    sort_order = excluded.sort_order,
    updated_at = excluded.updated_at`,
		category.ID,
		category.Slug,
		category.Name,
		category.Description,
		category.SortOrder,
		toMillis(category.CreatedAt),
		toMillis(category.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put category: %w", translateError(err))
	}
	return nil
}

// DeleteCategory removes an empty category.
func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	categoryID = strings.TrimSpace(categoryID)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var products int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = ?`, categoryID).Scan(&products); err != nil {
			return fmt.Errorf("count category products: %w", err)
		}
		if products > 0 {
			return fmt.Errorf("delete category: %w", storage.ErrConflict)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, categoryID)
		if err != nil {
			return fmt.Errorf("delete category: %w", translateError(err))
		}
		return requireAffected(result)
	})
}

// ListProducts returns one filtered, ordered page of products with images.
func (s *Store) ListProducts(ctx context.Context, query storage.ProductQuery) (storage.ProductPage, error) {
	if err := s.ready(); err != nil {
		return storage.ProductPage{}, err
	}
	where := `WHERE (?1 = '' OR c.slug = ?1) AND (?2 = '' OR p.status = ?2)`
	categorySlug := strings.TrimSpace(query.CategorySlug)
	status := strings.TrimSpace(query.Status)

	var page storage.ProductPage
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id `+where,
		categorySlug, status,
	).Scan(&page.Total); err != nil {
		return storage.ProductPage{}, fmt.Errorf("count products: %w", err)
	}

	order := orderClause(query.OrderBy, productOrderColumns, "p.sort_order ASC, p.name ASC")
	rows, err := s.sqlDB.QueryContext(ctx,
		productSelect+"\n"+where+"\nORDER BY "+order+", p.id ASC\nLIMIT ?3 OFFSET ?4",
		categorySlug, status, limitArg(query.Limit), offsetArg(query.Offset),
	)
	if err != nil {
		return storage.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return storage.ProductPage{}, fmt.Errorf("scan product: %w", err)
		}
		page.Products = append(page.Products, p)
	}
	if err := rows.Err(); err != nil {
		return storage.ProductPage{}, fmt.Errorf("iterate products: %w", err)
	}
	for i := range page.Products {
		images, err := s.productImages(ctx, page.Products[i].ID)
		if err != nil {
			return storage.ProductPage{}, err
		}
		page.Products[i].Images = images
	}
	return page, nil
}

func (s *Store) productImages(ctx context.Context, productID string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT path FROM product_images WHERE product_id = ? ORDER BY position ASC`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()
	var images []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, path)
	}
	return images, rows.Err()
}

func (s *Store) getProductWhere(ctx context.Context, clause string, arg string) (storage.Product, error) {
	if err := s.ready(); err != nil {
		return storage.Product{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, productSelect+"\nWHERE "+clause, strings.TrimSpace(arg))
	p, err := scanProduct(row)
	if err != nil {
		return storage.Product{}, fmt.Errorf("get product: %w", translateError(err))
	}
	images, err := s.productImages(ctx, p.ID)
	if err != nil {
		return storage.Product{}, err
	}
	p.Images = images
	return p, nil
}

// GetProduct returns a product by id.
func (s *Store) GetProduct(ctx context.Context, productID string) (storage.Product, error) {
	return s.getProductWhere(ctx, "p.id = ?", productID)
}

// GetProductBySlug returns a product by slug.
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (storage.Product, error) {
	return s.getProductWhere(ctx, "p.slug = ?", slug)
}

// PutProduct upserts a product and replaces its images.
func (s *Store) PutProduct(ctx context.Context, product storage.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO products (
    id, slug, category_id, name, summary, description, price_cents, currency,
    thumbnail_path, status, sort_order, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    slug = excluded.slug,
    category_id = excluded.category_id,
    name = excluded.name,
    summary = excluded.summary,
    description = excluded.description,
    price_cents = excluded.price_cents,
    currency = excluded.currency,
    thumbnail_path = excluded.thumbnail_path,
    status = excluded.status,
    sort_order = excluded.sort_order,
    updated_at = excluded.updated_at`,
			product.ID,
			product.Slug,
			product.CategoryID,
			product.Name,
			product.Summary,
			product.Description,
			product.PriceCents,
			product.Currency,
			product.ThumbnailPath,
			product.Status,
			product.SortOrder,
			toMillis(product.CreatedAt),
			toMillis(product.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("put product: %w", translateError(err))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_images WHERE product_id = ?`, product.ID); err != nil {
			return fmt.Errorf("clear product images: %w", err)
		}
		for position, path := range product.Images {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO product_images (product_id, position, path) VALUES (?, ?, ?)`,
				product.ID, position, path,
			); err != nil {
				return fmt.Errorf("insert product image: %w", err)
			}
		}
		return nil
	})
}

// DeleteProduct removes a product and its images.
func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, strings.TrimSpace(productID))
	if err != nil {
		return fmt.Errorf("delete product: %w", translateError(err))
	}
	return requireAffected(result)
}

// SetProductStatus changes a product's publication status.
func (s *Store) SetProductStatus(ctx context.Context, productID string, status string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE products SET status = ?, updated_at = ? WHERE id = ?`,
		status, toMillis(at), strings.TrimSpace(productID),
	)
	if err != nil {
		return fmt.Errorf("set product status: %w", err)
	}
	if err := requireAffected(result); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("set product status: %w", err)
		}
		return err
	}
	return nil
}
