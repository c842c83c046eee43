// Command approvalsctl administers approver relationships, authority data
// and the database schema of the HR approvals service.
package main

func main() {
	Execute()
}
