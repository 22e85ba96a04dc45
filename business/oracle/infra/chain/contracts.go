package chain

import "github.com/ethereum/go-ethereum/common"

// Multicall3Address is the canonical Multicall3 deployment, identical on
// every major EVM chain.
var Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Multicall3ABI is the ABI for the Multicall3 contract.
// Only includes tryAggregate which we use for batched reads.
const Multicall3ABI = `[
	{
		"inputs": [
			{"internalType": "bool", "name": "requireSuccess", "type": "bool"},
			{
				"components": [
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "bytes", "name": "callData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Call[]",
				"name": "calls",
				"type": "tuple[]"
			}
		],
		"name": "tryAggregate",
		"outputs": [
			{
				"components": [
					{"internalType": "bool", "name": "success", "type": "bool"},
					{"internalType": "bytes", "name": "returnData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Result[]",
				"name": "returnData",
				"type": "tuple[]"
			}
		],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// multicallCall mirrors the Multicall3.Call tuple.
type multicallCall struct {
	Target   common.Address
	CallData []byte
}

// multicallResult mirrors the Multicall3.Result tuple.
type multicallResult struct {
	Success    bool
	ReturnData []byte
}
