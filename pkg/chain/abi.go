package chain

// Contract ABIs, trimmed to the methods the bot calls.

const factoryABI = `[
	{
		"name": "getWallet",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "fid", "type": "uint256"}],
		"outputs": [{"name": "", "type": "address"}]
	}
]`

const walletABI = `[
	{
		"name": "botAddress",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "address"}]
	},
	{
		"name": "sendTip",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "recipient", "type": "address"},
			{"name": "token", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	}
]`

const erc20ABI = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`
