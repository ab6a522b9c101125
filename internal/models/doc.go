// package models defines the data model for the ranked catalog mirror
package models
