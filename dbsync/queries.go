package dbsync

const (
	queryChainMetadata = `SELECT start_time, network_name FROM meta LIMIT 1`

	queryDatabaseSize = `SELECT pg_size_pretty(pg_database_size(current_database()))`

	queryLatestSlot = `SELECT slot_no FROM block WHERE block_no IS NOT NULL ORDER BY block_no DESC LIMIT 1`

	querySyncProgress = `
SELECT 100 * (extract(epoch FROM (max(time) AT TIME ZONE 'UTC')) - extract(epoch FROM (min(time) AT TIME ZONE 'UTC')))
           / (extract(epoch FROM (now() AT TIME ZONE 'UTC')) - extract(epoch FROM (min(time) AT TIME ZONE 'UTC')))
FROM block`

	queryStakeAddress = `
SELECT stake_address.view
FROM tx_out
INNER JOIN stake_address ON tx_out.stake_address_id = stake_address.id
WHERE tx_out.address = $1
LIMIT 1`

	queryTxSlot = `
SELECT block.slot_no
FROM tx
INNER JOIN block ON tx.block_id = block.id
WHERE tx.hash = decode($1, 'hex')`
)
