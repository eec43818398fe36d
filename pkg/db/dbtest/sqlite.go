// Package dbtest opens throwaway in-memory SQLite databases carrying the
// storefront schema, for repository tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT,
  phone TEXT,
  avatar_url TEXT,
  provider TEXT NOT NULL,
  provider_id TEXT,
  email_verified INTEGER NOT NULL DEFAULT 0,
  is_guest INTEGER NOT NULL DEFAULT 0,
  is_admin INTEGER NOT NULL DEFAULT 0,
  verification_token TEXT,
  verification_expires DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX idx_users_email ON users (lower(email)) WHERE NOT is_guest;`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL UNIQUE,
  slug TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  short_description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),
  compare_price NUMERIC,
  category TEXT,
  subcategory TEXT,
  images TEXT NOT NULL DEFAULT '{}',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  is_active INTEGER NOT NULL DEFAULT 1,
  tags TEXT NOT NULL DEFAULT '{}',
  benefits TEXT NOT NULL DEFAULT '{}',
  ingredients TEXT,
  usage TEXT,
  weight TEXT,
  meta_title TEXT,
  meta_description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX idx_products_active_slug ON products (slug) WHERE is_active;`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT,
  guest_email TEXT,
  status TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  shipping_fee NUMERIC NOT NULL DEFAULT 0,
  discount NUMERIC,
  total NUMERIC NOT NULL,
  shipping_name TEXT NOT NULL,
  shipping_email TEXT NOT NULL,
  shipping_phone TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  shipping_city TEXT NOT NULL DEFAULT '',
  shipping_state TEXT NOT NULL DEFAULT '',
  shipping_postal TEXT NOT NULL DEFAULT '',
  shipping_country TEXT NOT NULL DEFAULT 'India',
  tracking_url TEXT,
  tracking_number TEXT,
  courier_name TEXT,
  failure_reason TEXT,
  cancellation_reason TEXT,
  admin_notes TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_slug TEXT NOT NULL,
  product_image TEXT,
  price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  note TEXT,
  changed_by TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_slug TEXT NOT NULL DEFAULT '',
  product_name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  compare_price NUMERIC,
  image TEXT,
  category TEXT,
  stock INTEGER,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, product_id)
);`,
	`CREATE TABLE wishlist_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_slug TEXT NOT NULL DEFAULT '',
  product_name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  compare_price NUMERIC,
  image TEXT,
  category TEXT,
  stock INTEGER,
  added_at DATETIME,
  UNIQUE (user_id, product_id)
);`,
}

// Open returns a fresh in-memory database with every storefront table.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
