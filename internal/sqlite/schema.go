package sqlite

// AUTOINCREMENT keeps SQLite from handing out the id of a deleted row again.
const createProducts = `CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 0)
);`

const idxProductsName = `CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);`

// schemaDDL lists the statements applied on every open, in order.
var schemaDDL = []string{
	createProducts,
	idxProductsName,
}
