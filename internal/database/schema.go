package database

const createKeyspace = `CREATE KEYSPACE IF NOT EXISTS %s
	WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`

// Amounts are stored as decimal strings to keep exact cents.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id int PRIMARY KEY,
		name text,
		description text,
		price text,
		category text,
		stock int,
		status text,
		image text,
		images list<text>,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id int PRIMARY KEY,
		name text,
		email text,
		phone text,
		password_hash text,
		address text,
		orders int,
		total_spent text,
		last_order timestamp,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS users_by_email (
		email text PRIMARY KEY,
		user_id int
	)`,
	`CREATE TABLE IF NOT EXISTS users_by_phone (
		phone text PRIMARY KEY,
		user_id int
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id text PRIMARY KEY,
		order_number text,
		customer_id int,
		customer_name text,
		customer_email text,
		customer_phone text,
		items text,
		total text,
		delivery_address text,
		status text,
		payment_method text,
		payment_status text,
		date timestamp,
		completed_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS orders_by_customer (
		customer_id int,
		date timestamp,
		order_id text,
		PRIMARY KEY (customer_id, date, order_id)
	) WITH CLUSTERING ORDER BY (date DESC, order_id ASC)`,
}
