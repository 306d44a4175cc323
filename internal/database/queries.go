/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// User queries
	queryGetRoundupUsers = `
		SELECT u.id, COALESCE(u.latest_roundup_date, ''),
		       p.id, p.npo_id, p.bank_id, b.type, p.monthly_limit,
		       t.access_token, t.account_id
		FROM users u
		JOIN pledges p ON p.user_id = u.id AND p.active = 1
		JOIN banks b ON b.id = p.bank_id
		JOIN user_tokens t ON t.user_id = u.id AND t.bank_type = b.type
		WHERE u.active = 1
		  AND EXISTS (SELECT 1 FROM pledge_addresses pa WHERE pa.pledge_id = p.id)
		  AND p.position = (
			SELECT MIN(p2.position) FROM pledges p2
			WHERE p2.user_id = u.id AND p2.active = 1)
		ORDER BY u.created_at`

	queryGetPledgeAddresses = `
		SELECT month, address
		FROM pledge_addresses
		WHERE pledge_id = ?
		ORDER BY month`

	querySetLatestRoundupDate = `
		UPDATE users
		SET latest_roundup_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, active) VALUES (?, ?)`

	queryInsertBank = `
		INSERT OR IGNORE INTO banks (id, type) VALUES (?, ?)`

	queryUpsertUserToken = `
		INSERT INTO user_tokens (user_id, bank_type, access_token, account_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, bank_type) DO UPDATE SET
			access_token = excluded.access_token,
			account_id = excluded.account_id`

	queryInsertPledge = `
		INSERT INTO pledges (id, user_id, bank_id, npo_id, active, monthly_limit, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			active = excluded.active,
			monthly_limit = excluded.monthly_limit,
			position = excluded.position`

	queryUpsertPledgeAddress = `
		INSERT INTO pledge_addresses (pledge_id, month, address)
		VALUES (?, ?, ?)
		ON CONFLICT(pledge_id, month) DO UPDATE SET address = excluded.address`

	// Address queries
	queryInsertAddress = `
		INSERT OR IGNORE INTO addresses (address, public_key) VALUES (?, ?)`

	queryGetAddress = `
		SELECT address, public_key, COALESCE(latest_transaction, ''), created_at
		FROM addresses
		WHERE address = ?`

	queryGetAddresses = `
		SELECT address, public_key, COALESCE(latest_transaction, ''), created_at
		FROM addresses
		ORDER BY created_at`

	querySetLatestTransaction = `
		UPDATE addresses
		SET latest_transaction = ?
		WHERE address = ?`

	// Chain entry queries
	queryUpsertChainEntry = `
		INSERT INTO chain_transactions (hash, address, entry_count, payload, signatures)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET signatures = excluded.signatures`

	queryGetChainEntry = `
		SELECT hash, payload, signatures
		FROM chain_transactions
		WHERE hash = ?`

	// Audit record queries
	queryCheckPlaidTransaction = `
		SELECT transaction_id FROM plaid_transactions WHERE transaction_id = ? LIMIT 1`

	queryInsertPlaidTransaction = `
		INSERT INTO plaid_transactions (transaction_id, user_id, amount, roundup, date, name, summed)
		VALUES (?, ?, ?, ?, ?, ?, 0)`

	// Run queries
	queryUpsertRun = `
		INSERT INTO runs (process, last)
		VALUES (?, ?)
		ON CONFLICT(process) DO UPDATE SET last = excluded.last`

	queryGetRun = `
		SELECT process, last FROM runs WHERE process = ?`
)
