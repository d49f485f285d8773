package storage

const (
	selectInvoices = `SELECT i.id, i.invoice_number, i.customer_id, COALESCE(c.company_name, ''), i.date, i.due_date,
       i.subtotal, i.vat_rate, i.vat_amount, i.total,
       i.status, i.payment_terms, i.notes, i.created_at, i.updated_at
FROM invoices i
LEFT JOIN customers c ON c.id = i.customer_id`

	insertInvoice = `INSERT INTO invoices (id, invoice_number, customer_id, date, due_date,
       subtotal, vat_rate, vat_amount, total, status, payment_terms, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateInvoice = `UPDATE invoices SET invoice_number = ?, customer_id = ?, date = ?, due_date = ?,
       subtotal = ?, vat_rate = ?, vat_amount = ?, total = ?, status = ?, payment_terms = ?, notes = ?,
       updated_at = ?, sync_status = 'pending'
WHERE id = ?`

	updateInvoiceStatus = `UPDATE invoices SET status = ?, updated_at = ?, sync_status = 'pending' WHERE id = ?`

	updateSyncStatus = `UPDATE invoices SET sync_status = ? WHERE id = ?`

	selectPendingSync = `SELECT id FROM invoices WHERE sync_status != 'synced' ORDER BY updated_at LIMIT ?`

	selectAllItems = `SELECT invoice_id, description, quantity, unit_price, total
FROM invoice_items ORDER BY invoice_id, position`

	selectItemsByInvoice = `SELECT invoice_id, description, quantity, unit_price, total
FROM invoice_items WHERE invoice_id = ? ORDER BY position`

	insertItem = `INSERT INTO invoice_items (invoice_id, position, description, quantity, unit_price, total)
VALUES (?, ?, ?, ?, ?, ?)`

	deleteItemsByInvoice = `DELETE FROM invoice_items WHERE invoice_id = ?`

	selectCustomers = `SELECT id, company_name, org_number, vat_number, billing_address, shipping_address,
       use_custom_shipping, email, phone, contact_name, contact_position, contact_email, contact_phone, created_at
FROM customers`

	insertCustomer = `INSERT INTO customers (id, company_name, org_number, vat_number, billing_address, shipping_address,
       use_custom_shipping, email, phone, contact_name, contact_position, contact_email, contact_phone, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectPurchases = `SELECT id, date, description, amount, image_url, created_at
FROM purchases ORDER BY date DESC, created_at DESC`

	insertPurchase = `INSERT INTO purchases (id, date, description, amount, image_url, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
)
